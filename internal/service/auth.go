package service

import (
	"context"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/config"
	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/db"
)

const (
	badCredentials = "unable to log in with provided credentials"

	// bcrypt refuses longer inputs.
	maxPasswordBytes = 72
)

type (
	RegisterInput struct {
		Email     string `json:"email" validate:"required,email,max=254"`
		Username  string `json:"username" validate:"required,alphanum,max=150"`
		FirstName string `json:"first_name" validate:"required,max=150"`
		LastName  string `json:"last_name" validate:"required,max=150"`
		Password  string `json:"password" validate:"required,max=72"`
	}

	LoginInput struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	Auth struct {
		db       *gorm.DB
		logger   *zap.SugaredLogger
		validate *validator.Validate
		cost     int
	}
)

func NewAuth(cfg *config.Config, gdb *gorm.DB, l *zap.SugaredLogger, v *validator.Validate) *Auth {
	return &Auth{
		db:       gdb,
		logger:   l,
		validate: v,
		cost:     cfg.PasswordCost,
	}
}

func (s *Auth) Register(ctx context.Context, in RegisterInput) (*UserView, error) {
	if err := checkStruct(s.validate, in); err != nil {
		return nil, err
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, validationErr("password must be at most %d bytes", maxPasswordBytes)
	}

	var taken int64
	res := s.db.WithContext(ctx).Model(&db.User{}).
		Where("email = ? OR username = ?", in.Email, in.Username).
		Count(&taken)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "check existing user")
	}
	if taken > 0 {
		return nil, conflictErr("a user with this email or username already exists")
	}

	hash, err := s.bcryptGen(in.Password)
	if err != nil {
		return nil, errors.Wrap(err, "bcryptGen")
	}
	user := db.User{
		Email:     in.Email,
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  hash,
	}
	res = s.db.WithContext(ctx).Create(&user)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return nil, conflictErr("a user with this email or username already exists")
	}
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "create user")
	}

	s.logger.Infow("user registered", "user_id", user.ID)
	v := userView(&user, false)
	return &v, nil
}

// Login checks the password and issues a fresh token, revoking the previous one.
func (s *Auth) Login(ctx context.Context, in LoginInput) (string, error) {
	if err := checkStruct(s.validate, in); err != nil {
		return "", err
	}

	user := db.User{}
	res := s.db.WithContext(ctx).Where("email = ?", in.Email).First(&user)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return "", validationErr(badCredentials)
	}
	if res.Error != nil {
		return "", errors.Wrap(res.Error, "get user")
	}

	if err := s.bcryptCheck(user.Password, in.Password); err != nil {
		return "", validationErr(badCredentials)
	}

	token := uuid.New().String()
	res = s.db.WithContext(ctx).Model(&user).Update("token", token)
	if res.Error != nil {
		return "", errors.Wrap(res.Error, "update token")
	}

	return token, nil
}

func (s *Auth) Logout(ctx context.Context, user *db.User) error {
	if user == nil {
		return newError(ErrUnauthorized, "authentication required")
	}
	res := s.db.WithContext(ctx).Model(user).Update("token", "")
	if res.Error != nil {
		return errors.Wrap(res.Error, "clear token")
	}
	return nil
}

func (s *Auth) Authenticate(ctx context.Context, token string) (*db.User, error) {
	if token == "" {
		return nil, newError(ErrUnauthorized, "authentication required")
	}
	user := db.User{}
	res := s.db.WithContext(ctx).Where("token = ?", token).First(&user)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, newError(ErrUnauthorized, "invalid token")
	}
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "get user by token")
	}
	return &user, nil
}

func (s *Auth) bcryptGen(pass string) (string, error) {
	passwordHashB, err := bcrypt.GenerateFromPassword([]byte(pass), s.cost)
	if err != nil {
		return "", errors.Wrap(err, "generate password hash")
	}
	return string(passwordHashB), nil
}

func (s *Auth) bcryptCheck(hash, pass string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass))
}
