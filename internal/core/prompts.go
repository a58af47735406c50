package core

import "fmt"

// prompts.go defines the prompts used by the chat and symptom-checker
// components. Keeping these in a separate file makes them easy to tweak
// without touching the rest of the code.

// systemPromptTemplate is the fixed system instruction for patient chat. The
// session's bound patient id and the context snapshot captured at session
// creation are interpolated into it on every model call.
const systemPromptTemplate = `You are a healthcare assistant. Please answer all questions professionally and accurately.

Current Patient ID: %d
Patient History: %s

Guidelines:
- Maintain HIPAA compliance
- Use medical terminology appropriately
- Refer to specialists when necessary`

// symptomPromptTemplate asks for a ranked triage assessment from a structured
// patient profile. Values are already normalised by the caller.
const symptomPromptTemplate = `Given the following patient details, including age, gender, medical history, lifestyle factors, and symptoms, identify the top 3 possible diseases in order of likelihood from most to least likely. Consider all relevant patient information in your analysis. Additionally, provide treatment options for each disease briefly.

1. Age: %d
2. Gender: %s
3. Occupation: %s
4. Nationality: %s
5. Weight: %s
6. Existing Medical Symptoms: %s
7. Chronic Disease: %s
8. Allergies: %s
9. Previous Surgeries: %s
10. Current Medications: %s
11. Smoking Status: %s
12. Alcohol Intake: %s
13. Occasional Drug Use: %s`

// SystemInstruction renders the chat system prompt for one session.
func SystemInstruction(patientID int64, contextSnapshot string) string {
	return fmt.Sprintf(systemPromptTemplate, patientID, contextSnapshot)
}
