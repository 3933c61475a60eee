package analyzer

import (
	"fmt"

	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
)

func ecgPrompt(text string) string {
	return fmt.Sprintf(`Analyze this ECG/EKG report and extract key cardiac information:

%s

Please identify and explain:
1. Heart rate and rhythm
2. Any abnormalities detected
3. Clinical significance of findings
4. Recommendations for follow-up
5. Key measurements (intervals, axes, etc.)

Provide a clear, structured analysis that a patient can understand.
Include appropriate medical disclaimers.`, snippet(text))
}

func bloodTestPrompt(text string) string {
	return fmt.Sprintf(`Analyze these blood test results and provide patient-friendly explanations:

%s

Please provide:
1. Summary of all test values
2. Which values are within/outside normal ranges
3. Clinical significance of abnormal values
4. Lifestyle factors that might influence results
5. Recommendations for follow-up

Use clear, non-technical language while remaining accurate.`, snippet(text))
}

func prescriptionPrompt(text string) string {
	return fmt.Sprintf(`Analyze this prescription and provide medication information:

%s

Please extract and explain:
1. All medications prescribed (name, dosage, frequency)
2. Purpose of each medication
3. Important side effects to watch for
4. Drug interactions to be aware of
5. Instructions for taking medications
6. Duration of treatment

Provide clear, actionable information for the patient.`, snippet(text))
}

func radiologyPrompt(text string) string {
	return fmt.Sprintf(`Analyze this radiology report and provide patient-friendly explanations:

%s

Please explain:
1. Type of imaging study performed
2. Key findings in simple terms
3. What normal vs abnormal findings mean
4. Clinical significance of any abnormalities
5. Recommended follow-up actions

Translate medical terminology into understandable language.`, snippet(text))
}

func labReportPrompt(text string) string {
	return fmt.Sprintf(`Analyze this laboratory report and provide comprehensive insights:

%s

Please provide:
1. Summary of all test results
2. Normal vs abnormal values with explanations
3. Potential health implications
4. Lifestyle recommendations based on results
5. Questions to ask your healthcare provider

Make the information accessible and actionable for patients.`, snippet(text))
}

func generalPrompt(text string) string {
	return fmt.Sprintf(`Analyze this medical document and extract important information:

%s

Please provide:
1. Document summary and purpose
2. Key medical information
3. Important dates and appointments
4. Action items or follow-up requirements
5. Questions to discuss with healthcare providers

Organize the information in a patient-friendly format.`, snippet(text))
}

func summaryPrompt(analysis *domain.Analysis) string {
	return fmt.Sprintf(`Create a concise 2-3 sentence summary of this medical document analysis:

Document Type: %s
Analysis: %s

Focus on the most important findings and recommendations.`, analysis.DocumentType, snippet(analysis.Analysis))
}

func symptomPrompt(symptoms string) string {
	return fmt.Sprintf(`A person is experiencing these symptoms: %s

Please provide:
1. General information about these symptoms
2. When to seek medical attention
3. Basic self-care suggestions
4. Clear disclaimer that this is not medical advice

IMPORTANT: Emphasize seeking professional medical advice and do not provide diagnosis.`, symptoms)
}

func recommendationsPrompt(context string) string {
	return fmt.Sprintf(`Based on this health information, provide personalized health recommendations:

%s

Please provide:
1. General health tips
2. Lifestyle recommendations
3. Areas that might need attention
4. Preventive care suggestions

Keep recommendations general and emphasize consulting healthcare providers.`, context)
}

// snippet caps prompt payloads so oversized documents do not blow the
// context window.
func snippet(text string) string {
	const maxSnippet = 8000
	if len(text) > maxSnippet {
		return text[:maxSnippet]
	}
	return text
}
