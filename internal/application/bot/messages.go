package bot

import (
	"fmt"

	"github.com/aescanero/quizcast/pkg/ports"
)

// Callback data for the quiz type keyboard
const (
	callbackAnonymous    = "anonymous_true"
	callbackNonAnonymous = "anonymous_false"
)

const welcomeMessage = `🎯 *Quiz Bot*

Create multiple-choice quizzes from JSON, instantly.

*Format rules:*
• ` + "`q`" + ` = question, ` + "`o`" + ` = options, ` + "`c`" + ` = correct index, ` + "`e`" + ` = explanation
• ` + "`c`" + ` starts from 0 (0=A, 1=B, 2=C, 3=D)
• 2-4 options per question
• Keep texts short to fit Telegram limits`

const templateJSON = `{"all_q":[{"q":"Capital of France?","o":["London","Paris","Berlin","Madrid"],"c":1,"e":"Paris is the capital and largest city of France"},{"q":"What is 2+2?","o":["3","4","5","6"],"c":1,"e":"Basic addition: 2+2=4"}]}`

const typeSelectionMessage = `*Choose your quiz style:*

🔒 *Anonymous* — can be forwarded to channels and groups, voters stay private.

👤 *Non-anonymous* — shows who answered each question, cannot be forwarded to channels.`

const jsonRequestMessage = `*Next steps:*
1. Copy the JSON template above
2. Fill in your own questions (an AI assistant works well for this)
3. Send the customized JSON back to me`

const helpMessage = `*Quiz Bot Help*

*Commands:*
/start — begin quiz creation
/quickstart — quick 5-step guide
/template — get the JSON template
/generate <topic> — let the bot write a quiz for you
/status — check your settings
/toggle — switch quiz types
/help — show this help

*JSON format:*
` + "`all_q`" + ` — questions array
` + "`q`" + ` — question text
` + "`o`" + ` — answer options (2-4 choices)
` + "`c`" + ` — correct answer index (0=A, 1=B, 2=C, 3=D)
` + "`e`" + ` — explanation (optional)`

const quickStartMessage = `*Quick start:*

1. Use /template to get the JSON format
2. Fill in your questions (or use /generate <topic>)
3. Send the JSON to me
4. Get instant interactive quiz polls
5. Forward anonymous quizzes anywhere

Need details? /help`

// typeSelectionKeyboard is the anonymous / non-anonymous chooser
func typeSelectionKeyboard() [][]ports.Button {
	return [][]ports.Button{
		{{Text: "🔒 Anonymous quiz (can forward to channels)", Data: callbackAnonymous}},
		{{Text: "👤 Non-anonymous quiz (shows who voted)", Data: callbackNonAnonymous}},
	}
}

// quizTypeLabel names the poll type for user-facing messages
func quizTypeLabel(anonymous bool) string {
	if anonymous {
		return "🔒 Anonymous"
	}
	return "👤 Non-anonymous"
}

// greeting builds the personalized /start opener
func greeting(firstName string) string {
	if firstName == "" {
		firstName = "Friend"
	}
	return fmt.Sprintf("👋 Hello *%s*!\n\n%s", firstName, welcomeMessage)
}
