package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/internal/repository"
	"github.com/terraed/backend/pkg/xcontext"
	"golang.org/x/exp/slices"
)

type GlobalRoleVerifier struct {
	userRepo repository.UserRepository
}

func NewGlobalRoleVerifier(userRepo repository.UserRepository) *GlobalRoleVerifier {
	return &GlobalRoleVerifier{userRepo: userRepo}
}

// Verify fails unless the requesting user holds one of requiredRoles.
func (verifier *GlobalRoleVerifier) Verify(ctx context.Context, requiredRoles ...entity.UserRole) error {
	userID := xcontext.RequestUserID(ctx)
	u, err := verifier.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("user %s is not valid: %w", userID, err)
	}

	if !slices.Contains(requiredRoles, u.Role) {
		return errors.New("user role does not have permission")
	}

	return nil
}
