package runtime

import (
	"fmt"
	"strings"

	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/ports"
)

// DefaultInstructions frame every request sent to the backend.
const DefaultInstructions = `You are the first point of contact for people coming to the clinic for their healthcare needs.
You are an experienced, empathetic medical professional conducting a hair loss consultation.
Your role is to guide the patient through a series of questions with a warm bedside manner.
For each question, provide a conversational, professional prompt based on the question context.
When the user answers, acknowledge their response naturally before moving to the next question.
Keep responses concise, supportive, and medically appropriate.
NEVER start responses with phrases like 'Sure!', 'Absolutely!', 'Of course!', 'Great!', or other overly enthusiastic interjections.
Begin directly with substantive content in a calm, professional tone.`

const noInterjections = "Do not start with 'Sure!', 'Absolutely!', 'Great!', or similar phrases. Begin naturally."

func (g *Generator) prompt(lines ...string) *ports.Prompt {
	return &ports.Prompt{Instructions: g.instructions, Lines: lines}
}

func (g *Generator) openingPrompt(first domain.Question) *ports.Prompt {
	return g.prompt(
		"You represent the clinic. You do not have a name.",
		"Generate a warm opening message for a hair loss consultation.",
		"The first question will be about: "+first.Prompt,
		"Keep the opening brief, friendly, and professional. Then ask the first question naturally.",
		"Do not use phrases like 'Sure!', 'Absolutely!', or other casual interjections. Start directly with your message.",
	)
}

func (g *Generator) ackPrompt(previous domain.Question, userText string) *ports.Prompt {
	return g.prompt(
		"Previous question: "+previous.Prompt,
		"Patient's answer: "+userText,
		"Generate a warm acknowledgment of the patient's answer.",
		"Do NOT ask a question.",
		noInterjections,
	)
}

func (g *Generator) ackNextPrompt(previous domain.Question, userText string, next domain.Question) *ports.Prompt {
	return g.prompt(
		"Previous question: "+previous.Prompt,
		"Patient's answer: "+userText,
		"Next question topic: "+next.Prompt,
		"Generate a brief acknowledgment of the patient's answer followed by the next question.",
		"Keep the tone warm, professional, and conversational.",
		noInterjections,
	)
}

func (g *Generator) closingPrompt() *ports.Prompt {
	return g.prompt(
		"The patient has completed the consultation.",
		"Generate a brief, warm closing message and let the patient know the consultation information is on the next screen.",
	)
}

func (g *Generator) infoPrompt(info string) *ports.Prompt {
	return g.prompt(
		"Summarize the following information in a warm and friendly tone:",
		info,
		"Keep it brief and conversational.",
	)
}

func (g *Generator) questionPrompt(q domain.Question) *ports.Prompt {
	return g.prompt(
		"Next question topic: "+q.Prompt,
		"Generate a brief question for the next topic.",
		"Keep the tone warm, professional, and conversational.",
		"Do not start with 'Sure!', 'Absolutely!', or similar phrases. Begin directly with the question.",
	)
}

func categorizePrompt(instructions string, q domain.Question, userText string) ports.Prompt {
	ids := make([]string, len(q.Options))
	list := make([]string, len(q.Options))
	for i, opt := range q.Options {
		ids[i] = opt.ID
		list[i] = fmt.Sprintf("- %s: %s", opt.ID, opt.Label)
	}

	quantity := "exactly one"
	if q.Type == domain.QuestionMultipleChoice {
		quantity = "one or more"
	}

	return ports.Prompt{
		Instructions: instructions,
		Lines: []string{
			"Question: " + q.Prompt,
			"User's response: " + userText,
			"Available response options:",
			strings.Join(list, "\n"),
			fmt.Sprintf("Based on the user's response, return %s of the following option IDs:", quantity),
			strings.Join(ids, ", "),
		},
	}
}
