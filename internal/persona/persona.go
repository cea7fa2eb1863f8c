// Package persona suggests and confirms the assistant persona from onboarding answers.
package persona

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/pbaille/melune/internal/apperrors"
	"github.com/pbaille/melune/internal/domain"
)

const (
	// SuggestedConfidence is recorded when the user keeps the suggested persona
	SuggestedConfidence = 0.85
	// OverrideConfidence is recorded when the user picks another persona
	OverrideConfidence = 0.70
)

// DefaultPersona is used by callers when no suggestion can be made
const DefaultPersona = domain.PersonaEmma

// Editorial mapping, one row per journey choice.
var table = map[domain.JourneyChoice]map[domain.AgeRange]domain.Persona{
	domain.JourneyBodyDisconnect: {
		domain.Age18To25: domain.PersonaEmma,
		domain.Age26To35: domain.PersonaClara,
		domain.Age36To45: domain.PersonaClara,
		domain.Age46To55: domain.PersonaSylvie,
		domain.Age55Plus: domain.PersonaChristine,
	},
	domain.JourneyHidingNature: {
		domain.Age18To25: domain.PersonaEmma,
		domain.Age26To35: domain.PersonaLaure,
		domain.Age36To45: domain.PersonaLaure,
		domain.Age46To55: domain.PersonaSylvie,
		domain.Age55Plus: domain.PersonaChristine,
	},
	domain.JourneyEmotionalControl: {
		domain.Age18To25: domain.PersonaLaure,
		domain.Age26To35: domain.PersonaLaure,
		domain.Age36To45: domain.PersonaSylvie,
		domain.Age46To55: domain.PersonaChristine,
		domain.Age55Plus: domain.PersonaChristine,
	},
}

// SuggestPersona looks up the persona for a pair of answers.
// ok is false when either answer is missing or unknown.
func SuggestPersona(journey domain.JourneyChoice, age domain.AgeRange) (p domain.Persona, ok bool) {
	row, ok := table[journey]
	if !ok {
		return "", false
	}
	p, ok = row[age]
	return p, ok
}

// ConfirmPersona returns the confidence for the final persona choice
func ConfirmPersona(selected, suggested domain.Persona) float64 {
	if selected == suggested {
		return SuggestedConfidence
	}
	return OverrideConfidence
}

// ProfileRepository persists the user profile document
type ProfileRepository interface {
	LoadProfile(ctx context.Context) (*domain.UserProfile, error)
	SaveProfile(ctx context.Context, p *domain.UserProfile) error
}

// Service applies persona rules to the stored profile
type Service struct {
	mu     sync.Mutex
	repo   ProfileRepository
	logger *zap.Logger
}

// NewService creates a persona Service
func NewService(repo ProfileRepository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Profile returns the stored profile
func (s *Service) Profile(ctx context.Context) (*domain.UserProfile, error) {
	p, err := s.repo.LoadProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

// SetAnswers records the onboarding answers. Empty values leave the
// stored answer untouched.
func (s *Service) SetAnswers(ctx context.Context, journey domain.JourneyChoice, age domain.AgeRange) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.Profile(ctx)
	if err != nil {
		return nil, err
	}
	if journey != "" {
		p.JourneyChoice = journey
	}
	if age != "" {
		p.AgeRange = age
	}
	if err := s.repo.SaveProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}

// Suggest returns the persona suggested by the stored answers
func (s *Service) Suggest(ctx context.Context) (domain.Persona, bool, error) {
	p, err := s.Profile(ctx)
	if err != nil {
		return "", false, err
	}
	persona, ok := SuggestPersona(p.JourneyChoice, p.AgeRange)
	return persona, ok, nil
}

// Confirm assigns the selected persona and its confidence to the profile
func (s *Service) Confirm(ctx context.Context, selected domain.Persona) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.Profile(ctx)
	if err != nil {
		return nil, err
	}
	if p.JourneyChoice == "" || p.AgeRange == "" {
		return nil, apperrors.ErrIncompleteProfile
	}

	suggested, _ := SuggestPersona(p.JourneyChoice, p.AgeRange)
	confidence := ConfirmPersona(selected, suggested)

	p.AssignedPersona = &selected
	p.PersonaConfidence = confidence
	if err := s.repo.SaveProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	s.logger.Info("persona_confirmed",
		zap.String("persona", string(selected)),
		zap.String("suggested", string(suggested)),
		zap.Bool("followed_suggestion", selected == suggested),
		zap.Float64("confidence", confidence),
	)
	return p, nil
}

// Reset clears the profile back to its first-launch state
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.SaveProfile(ctx, &domain.UserProfile{}); err != nil {
		return fmt.Errorf("reset profile: %w", err)
	}
	s.logger.Info("Profile reset")
	return nil
}
