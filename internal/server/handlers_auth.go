package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/auth"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/models"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/store"
)

type registerRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister creates an inactive account and emails a verification code.
func (s *Server) handleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" || len(req.Password) < 8 {
		return fail(c, fiber.StatusBadRequest, "email, username and a password of at least 8 characters are required")
	}

	if _, err := s.deps.Store().GetUserByEmail(req.Email); err == nil {
		return fail(c, fiber.StatusConflict, "user already exists")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.WithError(err).Error("Password hashing failed")
		return fail(c, fiber.StatusInternalServerError, "registration failed")
	}

	code, err := auth.NewVerifyCode()
	if err != nil {
		s.logger.WithError(err).Error("Verification code generation failed")
		return fail(c, fiber.StatusInternalServerError, "registration failed")
	}
	expires := time.Now().Add(auth.VerifyCodeTTL)

	user := &models.User{
		ID:            uuid.New(),
		Email:         req.Email,
		Username:      req.Username,
		Password:      hash,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		IsActive:      false,
		VerifyCode:    code,
		VerifyExpires: &expires,
	}
	if err := s.deps.Store().CreateUser(user); err != nil {
		s.logger.WithError(err).Error("User creation failed")
		return fail(c, fiber.StatusConflict, "user already exists")
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
		code, int(auth.VerifyCodeTTL.Minutes()))
	if err := s.deps.Mailer().Send(user.Email, "Verify your account", body); err != nil {
		s.logger.WithError(err).Warn("Verification mail failed",
			logging.Field{Key: "email", Value: user.Email})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "registration successful, check your email for the verification code",
		"user":    user,
	})
}

// handleVerify activates an account with the emailed code.
func (s *Server) handleVerify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := s.deps.Store().GetUserByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return fail(c, fiber.StatusNotFound, "user not found")
	}
	if user.IsActive {
		return c.JSON(fiber.Map{"success": true, "message": "account already verified"})
	}

	if err := auth.CheckVerifyCode(user.VerifyCode, req.Code, user.VerifyExpires, time.Now()); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	user.IsActive = true
	user.VerifyCode = ""
	user.VerifyExpires = nil
	if err := s.deps.Store().UpdateUser(user); err != nil {
		s.logger.WithError(err).Error("User activation failed")
		return fail(c, fiber.StatusInternalServerError, "verification failed")
	}

	return c.JSON(fiber.Map{"success": true, "message": "account verified"})
}

// handleLogin checks credentials and issues a token.
func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := s.deps.Store().GetUserByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || !auth.CheckPasswordHash(req.Password, user.Password) {
		return fail(c, fiber.StatusUnauthorized, "invalid credentials")
	}
	if !user.IsActive {
		return fail(c, fiber.StatusForbidden, "account not verified")
	}

	token, err := s.deps.JWT().Issue(user.ID, user.IsAdmin)
	if err != nil {
		s.logger.WithError(err).Error("Token issuance failed")
		return fail(c, fiber.StatusInternalServerError, "login failed")
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.deps.Store().UpdateUser(user); err != nil {
		s.logger.WithError(err).Warn("Failed to record last login")
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"access_token": token,
		"token_type":   "bearer",
		"user":         user,
	})
}

// handleMe returns the caller's account and profile.
func (s *Server) handleMe(c *fiber.Ctx) error {
	userID := currentUserID(c)

	user, err := s.deps.Store().GetUserByID(userID)
	if err != nil {
		if err == store.ErrNotFound {
			return fail(c, fiber.StatusNotFound, "user not found")
		}
		s.logger.WithError(err).Error("User lookup failed")
		return fail(c, fiber.StatusInternalServerError, "lookup failed")
	}

	profile, err := s.deps.Store().GetProfile(userID)
	if err != nil && err != store.ErrNotFound {
		s.logger.WithError(err).Error("Profile lookup failed")
		return fail(c, fiber.StatusInternalServerError, "lookup failed")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
		"profile": profile,
	})
}
