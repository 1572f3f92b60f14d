package agent

import (
	"fmt"
	"time"

	"todo-chat/internal/models"
)

func systemPrompt(now time.Time) string {
	return fmt.Sprintf(`You are TaskMate, a todo assistant. Today is %s.

To work with existing tasks reply with ONLY one JSON object:
- list_tasks: {"function": "list_tasks", "parameters": {"status": "todo|in_progress|completed", "priority": "low|medium|high|urgent"}}
- search_tasks: {"function": "search_tasks", "parameters": {"query": "text"}}
- complete_task: {"function": "complete_task", "parameters": {"title": "task name"}}
- delete_task: {"function": "delete_task", "parameters": {"title": "task name"}}
Omit parameters you do not need.

For greetings and casual conversation answer briefly in plain text, without JSON.`, now.Format(models.DateLayout))
}

func intentPrompt(message string) string {
	return fmt.Sprintf(`Classify the user's intent. Reply ONLY with JSON:
{"intent": "greeting|casual|task_creation|task_operation", "confidence": "high|medium|low"}

- greeting: hello, introductions ("Hi I am John")
- casual: small talk and statements ("I work at Google")
- task_creation: a new thing to do ("Buy flowers", "Call doctor tomorrow")
- task_operation: acting on existing tasks ("Show all tasks", "Complete buy laptop", "Delete meeting")

User: %q
JSON:`, message)
}

func titlePrompt(message string) string {
	return fmt.Sprintf(`Turn the sentence into a short task title (at most 6 words). Reply with the title only.

Input: "I have a busy day but still want to meet my boss tomorrow"
Output: meet boss

Input: "Reminder to call the dentist about my appointment"
Output: call dentist about appointment

Input: %q
Output:`, message)
}
