package httpapi

import (
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/dmitrijs2005/gophid/internal/server/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (s *Server) signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	profile, err := s.identity.Register(c.UserContext(), services.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		DisplayName:  req.DisplayName,
		Subscription: subscriptionPtr(req.Subscription),
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(newProfileResponse(profile))
}

func (s *Server) verify(c *fiber.Ctx) error {
	if err := s.identity.Verify(c.UserContext(), c.Params("token")); err != nil {
		return err
	}
	return c.JSON(messageResponse{Message: "Verification successful"})
}

func (s *Server) resendVerification(c *fiber.Ctx) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := s.identity.ResendVerification(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(messageResponse{Message: "Verification email sent"})
}

func (s *Server) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	session, err := s.identity.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(loginResponse{
		Token: session.Token,
		User:  userResponse{Email: session.User.Email, Subscription: session.User.Subscription},
	})
}

func (s *Server) current(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}

	profile, err := s.identity.CurrentProfile(c.UserContext(), account.ID)
	if err != nil {
		return err
	}
	return c.JSON(userResponse{Email: profile.Email, Subscription: profile.Subscription})
}

func (s *Server) logout(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}

	if err := s.identity.Logout(c.UserContext(), account.ID); err != nil {
		return err
	}
	return c.JSON(messageResponse{Message: "Logout success"})
}

func (s *Server) update(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}

	var req updateRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	updated, err := s.identity.UpdateProfile(c.UserContext(), account.ID, req.patch())
	if err != nil {
		return err
	}
	return c.JSON(newAccountResponse(updated))
}

// uploadAvatar spools the multipart "avatar" field into the temp directory
// and hands it to the pipeline, which owns the spooled file from then on.
func (s *Server) uploadAvatar(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		return common.NewError(common.ErrorBadRequest, services.MsgAvatarMissing)
	}
	if file.Size > common.AvatarMaxBytes {
		return common.NewError(common.ErrorBadRequest, services.MsgAvatarTooLarge)
	}

	tempPath := filepath.Join(s.tempDir, "upload-"+uuid.NewString())
	if err := c.SaveFile(file, tempPath); err != nil {
		_ = os.Remove(tempPath)
		return err
	}

	url, err := s.avatars.Accept(c.UserContext(), services.AvatarUpload{
		OwnerID:      account.ID,
		TempPath:     tempPath,
		Size:         file.Size,
		OriginalName: file.Filename,
		Origin:       s.origin(c),
	})
	if err != nil {
		return err
	}

	return c.JSON(avatarResponse{AvatarURL: url})
}

func (s *Server) origin(c *fiber.Ctx) string {
	if s.publicOrigin != "" {
		return s.publicOrigin
	}
	return c.BaseURL()
}

func health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
