package llm

import "strings"

// SystemInstruction frames the provider as an ATS reviewer.
const SystemInstruction = `You are an expert ATS (Applicant Tracking System) and Resume Coach.
Your goal is to compare a candidate's resume against a specific job description.
Analyze the relevance, keyword matching, and overall structure.
Provide a strict percentage score based on how well the resume fits the job description.
Identify matched keywords and critical missing keywords that appear in the job description but not the resume.
Provide actionable improvements.
Also check for major formatting red flags that might confuse an ATS (like implied complex columns or graphics, though you can only see text, infer structure from the text layout if possible, or give general advice).`

// BuildPrompt embeds both texts verbatim.
func BuildPrompt(resumeText string, jobDescription string) string {
	var b strings.Builder
	b.Grow(len(resumeText) + len(jobDescription) + 128)
	b.WriteString("RESUME TEXT:\n")
	b.WriteString(resumeText)
	b.WriteString("\n\nJOB DESCRIPTION:\n")
	b.WriteString(jobDescription)
	b.WriteString("\n\nPlease analyze the resume against the job description.")
	return b.String()
}
