package domain

import (
	"fmt"
	"time"

	"github.com/pbaille/melune/internal/apperrors"
)

// JourneyChoice is the user's top-level motivation picked during onboarding
type JourneyChoice string

const (
	JourneyBodyDisconnect   JourneyChoice = "body_disconnect"
	JourneyHidingNature     JourneyChoice = "hiding_nature"
	JourneyEmotionalControl JourneyChoice = "emotional_control"
)

// JourneyChoices lists every journey choice in display order
var JourneyChoices = []JourneyChoice{JourneyBodyDisconnect, JourneyHidingNature, JourneyEmotionalControl}

func (j JourneyChoice) Valid() bool { return contains(JourneyChoices, j) }

// AgeRange is a self-reported age bucket
type AgeRange string

const (
	Age18To25 AgeRange = "18-25"
	Age26To35 AgeRange = "26-35"
	Age36To45 AgeRange = "36-45"
	Age46To55 AgeRange = "46-55"
	Age55Plus AgeRange = "55+"
)

var AgeRanges = []AgeRange{Age18To25, Age26To35, Age36To45, Age46To55, Age55Plus}

func (a AgeRange) Valid() bool { return contains(AgeRanges, a) }

// Persona is the assistant tone bucket assigned to a user
type Persona string

const (
	PersonaEmma      Persona = "emma"
	PersonaLaure     Persona = "laure"
	PersonaClara     Persona = "clara"
	PersonaSylvie    Persona = "sylvie"
	PersonaChristine Persona = "christine"
)

var Personas = []Persona{PersonaEmma, PersonaLaure, PersonaClara, PersonaSylvie, PersonaChristine}

func (p Persona) Valid() bool { return contains(Personas, p) }

// EntryType classifies a notebook entry
type EntryType string

const (
	EntrySaved    EntryType = "saved"
	EntryPersonal EntryType = "personal"
	EntryTracking EntryType = "tracking"
)

var EntryTypes = []EntryType{EntrySaved, EntryPersonal, EntryTracking}

func (t EntryType) Valid() bool { return contains(EntryTypes, t) }

// CyclePhase is one of the four menstrual cycle stages
type CyclePhase string

const (
	PhaseMenstrual  CyclePhase = "menstrual"
	PhaseFollicular CyclePhase = "follicular"
	PhaseOvulatory  CyclePhase = "ovulatory"
	PhaseLuteal     CyclePhase = "luteal"
)

var CyclePhases = []CyclePhase{PhaseMenstrual, PhaseFollicular, PhaseOvulatory, PhaseLuteal}

func (c CyclePhase) Valid() bool { return contains(CyclePhases, c) }

// ParseJourneyChoice validates a journey choice read from user input
func ParseJourneyChoice(s string) (JourneyChoice, error) {
	return parse(JourneyChoices, s, "journey choice")
}

func ParseAgeRange(s string) (AgeRange, error) {
	return parse(AgeRanges, s, "age range")
}

func ParsePersona(s string) (Persona, error) {
	return parse(Personas, s, "persona")
}

func ParseEntryType(s string) (EntryType, error) {
	return parse(EntryTypes, s, "entry type")
}

func ParseCyclePhase(s string) (CyclePhase, error) {
	return parse(CyclePhases, s, "cycle phase")
}

func contains[T ~string](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func parse[T ~string](set []T, s, what string) (T, error) {
	v := T(s)
	if !contains(set, v) {
		return "", fmt.Errorf("%w: unknown %s %q", apperrors.ErrInvalidValue, what, s)
	}
	return v, nil
}

// UserProfile holds the onboarding answers and the persona derived from them
type UserProfile struct {
	JourneyChoice     JourneyChoice `json:"journeyChoice,omitempty"`
	AgeRange          AgeRange      `json:"ageRange,omitempty"`
	AssignedPersona   *Persona      `json:"assignedPersona,omitempty"`
	PersonaConfidence float64       `json:"personaConfidence"`
}

// CycleState is the part of the cycle tracker the notebook reads
type CycleState struct {
	CurrentPhase CyclePhase `json:"currentPhase,omitempty"`
}

// EntryMetadata is the structured context attached to a notebook entry
type EntryMetadata struct {
	Phase    CyclePhase `json:"phase,omitempty"`
	Mood     string     `json:"mood,omitempty"`
	Energy   *int       `json:"energy,omitempty"`
	Symptoms []string   `json:"symptoms,omitempty"`
	Tags     []string   `json:"tags,omitempty"`
}

// NotebookEntry is a single journal note or tracking record
type NotebookEntry struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	Type      EntryType     `json:"type"`
	Metadata  EntryMetadata `json:"metadata"`
	AutoTags  []string      `json:"autoTags"`
	Timestamp int64         `json:"timestamp"`
}

// CreatedAt returns the entry timestamp as a time.Time
func (e NotebookEntry) CreatedAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// AllTags returns auto tags followed by manual tags
func (e NotebookEntry) AllTags() []string {
	tags := make([]string, 0, len(e.AutoTags)+len(e.Metadata.Tags))
	tags = append(tags, e.AutoTags...)
	return append(tags, e.Metadata.Tags...)
}

// Clone returns a deep copy so callers cannot alias store-owned slices
func (e NotebookEntry) Clone() NotebookEntry {
	c := e
	c.AutoTags = append([]string(nil), e.AutoTags...)
	c.Metadata.Symptoms = append([]string(nil), e.Metadata.Symptoms...)
	c.Metadata.Tags = append([]string(nil), e.Metadata.Tags...)
	if e.Metadata.Energy != nil {
		v := *e.Metadata.Energy
		c.Metadata.Energy = &v
	}
	return c
}

// NotebookDocument is the persisted shape of the notebook
type NotebookDocument struct {
	Entries       []NotebookEntry `json:"entries"`
	AvailableTags []string        `json:"availableTags"`
}

// TagCount is one row of tag frequency stats
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// EnergyTrend labels the direction of energy over recent tracking entries
type EnergyTrend string

const (
	TrendUp     EnergyTrend = "hausse"
	TrendDown   EnergyTrend = "baisse"
	TrendStable EnergyTrend = "stable"
)

// TrendSummary aggregates the last week of tracking entries
type TrendSummary struct {
	EnergyTrend   EnergyTrend `json:"energyTrend"`
	AverageEnergy *float64    `json:"averageEnergy,omitempty"`
	TopSymptom    string      `json:"topSymptom,omitempty"`
	EntriesCount  int         `json:"entriesCount"`
}
