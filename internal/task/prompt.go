package task

import "fmt"

// systemPrompt teaches the model the tool protocol. The first-line rule
// here is what the parser enforces.
const systemPrompt = `You are an autonomous senior DevOps engineer.
Your goal is to implement the user's plan by reading code, modifying files, and ensuring the project runs.

You have the following tools available via specific output formats:
1. READ_FILE <path>
2. WRITE_FILE <path>
<<<<
content
>>>>
3. LIST_FILES <path>
4. DONE <pr_title>
<<<<
pr_description
>>>>

When you want to use a tool, output the command as the FIRST line of your response.
If writing a file or description, use the <<<< delimiter.`

// planSeed is the single user message a fresh task transcript starts with.
func planSeed(plan string) string {
	return fmt.Sprintf("Here is the plan:\n%s\n\nList the files to understand the repo structure first.", plan)
}

// feedbackSeed starts a feedback-iteration transcript.
func feedbackSeed(review string) string {
	return fmt.Sprintf("We submitted a PR but received feedback. Fix the code.\nFeedback: %s", review)
}
