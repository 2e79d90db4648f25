package proofs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relaydrop/relaydrop-backend/pkg/db/models"
	"github.com/relaydrop/relaydrop-backend/pkg/enums"
	pkgerrors "github.com/relaydrop/relaydrop-backend/pkg/errors"
)

type stubRepo struct {
	count     int64
	countErr  error
	created   []*models.ProofRecord
	createErr error
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) CreateUnderCap(ctx context.Context, proof *models.ProofRecord, perOrderCap int) (int64, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	if s.count >= int64(perOrderCap) {
		return 0, nil
	}
	s.created = append(s.created, proof)
	return 1, nil
}

func (s *stubRepo) CountByRole(ctx context.Context, orderID uuid.UUID, role enums.ActorRole) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.count, nil
}

func pickedUpOrder(driverID uuid.UUID) *models.Order {
	return &models.Order{
		ID:       uuid.New(),
		DriverID: &driverID,
		Status:   enums.OrderStatusPickedUp,
	}
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected typed error with code %s, got %v", code, err)
	}
	if appErr.Code() != code {
		t.Fatalf("expected code %s, got %s", code, appErr.Code())
	}
}

func TestUploadAcceptsWhilePickedUpAndUnderCap(t *testing.T) {
	driverID := uuid.New()
	repo := &stubRepo{count: 1}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	proof, err := svc.Upload(context.Background(), UploadInput{
		Order:    pickedUpOrder(driverID),
		DriverID: driverID,
		ImageURL: "https://storage.googleapis.com/proofs/a.jpg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proof.UploadedBy != enums.ActorRoleDriver {
		t.Fatalf("expected driver upload, got %s", proof.UploadedBy)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one created record, got %d", len(repo.created))
	}
}

func TestUploadRejectsThirdPhoto(t *testing.T) {
	driverID := uuid.New()
	repo := &stubRepo{count: 2}
	svc, _ := NewService(repo)

	_, err := svc.Upload(context.Background(), UploadInput{
		Order:    pickedUpOrder(driverID),
		DriverID: driverID,
		ImageURL: "https://storage.googleapis.com/proofs/c.jpg",
	})
	expectCode(t, err, pkgerrors.CodePrecondition)
	if len(repo.created) != 0 {
		t.Fatal("rejected upload must not create a record")
	}
}

func TestUploadRejectsWrongStatus(t *testing.T) {
	driverID := uuid.New()
	repo := &stubRepo{}
	svc, _ := NewService(repo)

	order := pickedUpOrder(driverID)
	order.Status = enums.OrderStatusAccepted

	_, err := svc.Upload(context.Background(), UploadInput{
		Order:    order,
		DriverID: driverID,
		ImageURL: "https://storage.googleapis.com/proofs/a.jpg",
	})
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestUploadRejectsNonAssignee(t *testing.T) {
	repo := &stubRepo{}
	svc, _ := NewService(repo)

	_, err := svc.Upload(context.Background(), UploadInput{
		Order:    pickedUpOrder(uuid.New()),
		DriverID: uuid.New(),
		ImageURL: "https://storage.googleapis.com/proofs/a.jpg",
	})
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestUploadRejectsMissingImage(t *testing.T) {
	driverID := uuid.New()
	svc, _ := NewService(&stubRepo{})

	_, err := svc.Upload(context.Background(), UploadInput{
		Order:    pickedUpOrder(driverID),
		DriverID: driverID,
		ImageURL: "   ",
	})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestCanMarkDelivered(t *testing.T) {
	tests := []struct {
		name     string
		count    int64
		expected bool
	}{
		{name: "no proofs", count: 0, expected: false},
		{name: "one proof", count: 1, expected: false},
		{name: "floor met", count: 2, expected: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := NewService(&stubRepo{count: tc.count})
			got, err := svc.CanMarkDelivered(context.Background(), uuid.New())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Fatalf("expected %v with %d proofs", tc.expected, tc.count)
			}
		})
	}
}
