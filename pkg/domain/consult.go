package domain

import (
	"slices"
	"strings"
)

// MappedAnswer is the structured extraction of a user reply.
// KeyPath is the id of the answered question; ValueID is an option id or the raw free text.
// Multiple-choice answers join their option ids with commas.
type MappedAnswer struct {
	KeyPath string `json:"key_path"`
	ValueID string `json:"value_id"`
}

// Values splits a multiple-choice value into its option ids.
func (a MappedAnswer) Values() []string {
	parts := strings.Split(a.ValueID, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Result field names. Answers are keyed flat: a question id equal to one of
// these names fills that field.
const (
	FieldConsultationStart = "consultation_start"
	FieldHairLossLocation  = "hair_loss_location"
	FieldHairLossAmount    = "hair_loss_amount"
	FieldChangesTiming     = "changes_timing"
	FieldHairPattern       = "hair_pattern"
	FieldHairType          = "hair_type"
	FieldHairLength        = "hair_length"
	FieldFamilyHistory     = "family_history"
	FieldStressFrequency   = "stress_frequency"
	FieldHairCareTime      = "hair_care_time"
	FieldGoalsText         = "goals_text"
	FieldTreatmentGoals    = "treatment_goals"
)

// StructuredConsult is the accumulated output record of a consultation.
// Scalar fields stay nil until answered; TreatmentGoals is always present.
type StructuredConsult struct {
	ConsultationStart *string  `json:"consultation_start,omitempty"`
	HairLossLocation  *string  `json:"hair_loss_location,omitempty"`
	HairLossAmount    *string  `json:"hair_loss_amount,omitempty"`
	ChangesTiming     *string  `json:"changes_timing,omitempty"`
	HairPattern       *string  `json:"hair_pattern,omitempty"`
	HairType          *string  `json:"hair_type,omitempty"`
	HairLength        *string  `json:"hair_length,omitempty"`
	FamilyHistory     *string  `json:"family_history,omitempty"`
	StressFrequency   *string  `json:"stress_frequency,omitempty"`
	HairCareTime      *string  `json:"hair_care_time,omitempty"`
	GoalsText         *string  `json:"goals_text,omitempty"`
	TreatmentGoals    []string `json:"treatment_goals"`
}

// NewStructuredConsult returns an empty record.
func NewStructuredConsult() StructuredConsult {
	return StructuredConsult{TreatmentGoals: []string{}}
}

// Apply stores the answer in the field named by its key path.
// It returns false when no field matches.
func (c *StructuredConsult) Apply(a MappedAnswer) bool {
	if a.KeyPath == FieldTreatmentGoals {
		if c.TreatmentGoals == nil {
			c.TreatmentGoals = []string{}
		}
		for _, v := range a.Values() {
			if !slices.Contains(c.TreatmentGoals, v) {
				c.TreatmentGoals = append(c.TreatmentGoals, v)
			}
		}
		return true
	}

	field := c.scalar(a.KeyPath)
	if field == nil {
		return false
	}
	v := a.ValueID
	*field = &v
	return true
}

func (c *StructuredConsult) scalar(key string) **string {
	switch key {
	case FieldConsultationStart:
		return &c.ConsultationStart
	case FieldHairLossLocation:
		return &c.HairLossLocation
	case FieldHairLossAmount:
		return &c.HairLossAmount
	case FieldChangesTiming:
		return &c.ChangesTiming
	case FieldHairPattern:
		return &c.HairPattern
	case FieldHairType:
		return &c.HairType
	case FieldHairLength:
		return &c.HairLength
	case FieldFamilyHistory:
		return &c.FamilyHistory
	case FieldStressFrequency:
		return &c.StressFrequency
	case FieldHairCareTime:
		return &c.HairCareTime
	case FieldGoalsText:
		return &c.GoalsText
	}
	return nil
}

// Clone returns a deep copy.
func (c StructuredConsult) Clone() StructuredConsult {
	out := NewStructuredConsult()
	for _, key := range scalarFields {
		src := (&c).scalar(key)
		if *src != nil {
			v := **src
			*out.scalar(key) = &v
		}
	}
	out.TreatmentGoals = append(out.TreatmentGoals, c.TreatmentGoals...)
	return out
}

// Fields returns only the populated fields, keyed by their JSON names.
// TreatmentGoals is included when it holds at least one value.
func (c StructuredConsult) Fields() map[string]any {
	out := make(map[string]any)
	for _, key := range scalarFields {
		if v := *(&c).scalar(key); v != nil {
			out[key] = *v
		}
	}
	if len(c.TreatmentGoals) > 0 {
		out[FieldTreatmentGoals] = slices.Clone(c.TreatmentGoals)
	}
	return out
}

// Rewrite replaces every populated value with the result of fn.
func (c *StructuredConsult) Rewrite(fn func(key, value string) string) {
	for _, key := range scalarFields {
		field := c.scalar(key)
		if *field != nil {
			v := fn(key, **field)
			*field = &v
		}
	}
	for i, v := range c.TreatmentGoals {
		c.TreatmentGoals[i] = fn(FieldTreatmentGoals, v)
	}
}

// KnownField reports whether key names a result field.
func KnownField(key string) bool {
	return key == FieldTreatmentGoals || slices.Contains(scalarFields, key)
}

var scalarFields = []string{
	FieldConsultationStart,
	FieldHairLossLocation,
	FieldHairLossAmount,
	FieldChangesTiming,
	FieldHairPattern,
	FieldHairType,
	FieldHairLength,
	FieldFamilyHistory,
	FieldStressFrequency,
	FieldHairCareTime,
	FieldGoalsText,
}
