package usecase

import (
	"context"
	"crypto/md5"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/repository"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/configuration"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/logger"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/utils"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/dto"
)

type IUserUsecase interface {
	Login(ctx context.Context, req model.ReqLogin) dto.Res
	Register(ctx context.Context, req model.ReqRegister) dto.Res
}

type userUsecase struct {
	userRepository repository.IUser
}

func NewUserUsecase(userRepository repository.IUser) IUserUsecase {
	return &userUsecase{userRepository: userRepository}
}

func (u *userUsecase) Login(ctx context.Context, req model.ReqLogin) dto.Res {
	var res dto.Res

	user, err := u.userRepository.GetByUserName(ctx, req.UserName)
	if err != nil {
		logger.GetLogger().WithField("user_name", req.UserName).Warn("login: user not found")
		res.ResponseCode = "401"
		res.ResponseMessage = "Invalid username or password"
		return res
	}

	hashed := fmt.Sprintf("%x", md5.Sum([]byte(req.Password)))
	if hashed != user.Password {
		res.ResponseCode = "401"
		res.ResponseMessage = "Invalid username or password"
		return res
	}

	now := utils.GetCurrentTime()
	claims := model.UserClaims{
		UserName: user.UserName,
		StandardClaims: jwt.StandardClaims{
			Issuer:    fmt.Sprintf("%d", user.ID),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(24 * time.Hour).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(configuration.C.App.SecretKey))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("login: sign token failed")
		res.ResponseCode = "500"
		res.ResponseMessage = "Internal server error"
		return res
	}

	res.ResponseCode = "200"
	res.ResponseMessage = "Success"
	res.Data = map[string]interface{}{
		"token":     signed,
		"user_name": user.UserName,
	}
	return res
}

func (u *userUsecase) Register(ctx context.Context, req model.ReqRegister) dto.Res {
	var res dto.Res

	if _, err := u.userRepository.GetByUserName(ctx, req.UserName); err == nil {
		res.ResponseCode = "409"
		res.ResponseMessage = "Username already taken"
		return res
	}

	user := model.User{
		Name:     req.Name,
		UserName: req.UserName,
		Password: req.Password,
	}
	if err := u.userRepository.CreateUser(ctx, user); err != nil {
		res.ResponseCode = "500"
		res.ResponseMessage = "Failed to create user"
		return res
	}

	res.ResponseCode = "200"
	res.ResponseMessage = "Success"
	return res
}
