package server

import (
	"lookup/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CheckIDDuplication handles POST /check-id-duplication
func (s *Server) CheckIDDuplication(c *fiber.Ctx) error {
	var req struct {
		ID looseString `json:"id" form:"id"`
	}
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	taken, err := s.userService.CheckIDTaken(c.UserContext(), req.ID.String())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"isDuplicated": taken})
}

// CheckUsernameDuplication handles POST /check-username-duplication
func (s *Server) CheckUsernameDuplication(c *fiber.Ctx) error {
	var req struct {
		Username looseString `json:"username" form:"username"`
	}
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	taken, err := s.userService.CheckUsernameTaken(c.UserContext(), req.Username.String())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"isDuplicated": taken})
}

// Signup handles POST /signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		ID       looseString `json:"id" form:"id"`
		Nickname looseString `json:"nickname" form:"nickname"`
		KakaoID  looseString `json:"kakaoId" form:"kakaoId"`
	}
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	user, err := s.userService.SignUp(c.UserContext(), service.SignUpInput{
		ID:       req.ID.String(),
		Nickname: req.Nickname.String(),
		KakaoID:  req.KakaoID.String(),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Sign up completed.",
		"user":    user.Public(),
	})
}

// KakaoLogin handles POST /auth/kakao. It only reports whether the Kakao id
// is linked to an account.
func (s *Server) KakaoLogin(c *fiber.Ctx) error {
	var req struct {
		KakaoID looseString `json:"kakaoId" form:"kakaoId"`
	}
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	res, err := s.userService.ResolveKakaoLogin(c.UserContext(), req.KakaoID.String())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// KakaoAuthorize handles GET /auth/kakao/login by redirecting to the Kakao
// consent page.
func (s *Server) KakaoAuthorize(c *fiber.Ctx) error {
	return c.Redirect(s.kakao.AuthCodeURL(uuid.NewString()), fiber.StatusFound)
}

// KakaoCallback handles GET /auth/kakao/callback?code=
func (s *Server) KakaoCallback(c *fiber.Ctx) error {
	res, err := s.userService.KakaoCallback(c.UserContext(), c.Query("code"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Kakao login succeeded.",
		"token":   res.Token,
		"user":    res.User,
	})
}
