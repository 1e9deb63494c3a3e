package service

import (
	"context"

	"github.com/stemsi/quizroom-backend/internal/model"
	"github.com/stemsi/quizroom-backend/internal/repository"
)

const maxViolationsListed = 500

// ViolationReport is what administrators review for one student.
type ViolationReport struct {
	UserID     int               `json:"user_id"`
	Counts     map[string]int    `json:"counts"`
	Violations []model.Violation `json:"violations"`
}

// ViolationService reads the anti-cheat telemetry.
type ViolationService struct {
	violationRepo *repository.ViolationRepository
}

func NewViolationService(violationRepo *repository.ViolationRepository) *ViolationService {
	return &ViolationService{violationRepo: violationRepo}
}

// Report returns a student's violation counts and the earliest entries.
func (s *ViolationService) Report(ctx context.Context, userID int) (*ViolationReport, error) {
	counts, err := s.violationRepo.CountByKind(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := s.violationRepo.ListByUser(ctx, userID, maxViolationsListed)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Violation{}
	}
	return &ViolationReport{UserID: userID, Counts: counts, Violations: list}, nil
}
