package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/zolffix/internal/model"
	"github.com/zolffix/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrAccountExists 在邮箱已注册时返回
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound 在账号不存在时返回
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidCredentials 在邮箱或密码错误时返回
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountInvalidInput 在注册信息不完整时返回
	ErrAccountInvalidInput = errors.New("invalid account input")
	// ErrInvalidToken 在令牌无法校验时返回
	ErrInvalidToken = errors.New("invalid token")
)

const tokenIssuer = "zolffix"

// AccountService 负责注册、登录与令牌签发。
// 账号索引以小写邮箱为键存放在 accounts/index。
type AccountService struct {
	store     storage.Store
	profiles  *ProfileService
	jwtSecret []byte
	jwtTTL    time.Duration
	clock     Clock

	mu sync.Mutex
}

// SignupInput 注册输入
type SignupInput struct {
	Name     string `json:"name" validate:"required,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type accountClaims struct {
	jwt.RegisteredClaims
}

func NewAccountService(store storage.Store, profiles *ProfileService, jwtSecret string, jwtTTL time.Duration, clock Clock) *AccountService {
	if clock == nil {
		clock = time.Now
	}
	if jwtTTL <= 0 {
		jwtTTL = 7 * 24 * time.Hour
	}
	return &AccountService{
		store:     store,
		profiles:  profiles,
		jwtSecret: []byte(jwtSecret),
		jwtTTL:    jwtTTL,
		clock:     clock,
	}
}

func (s *AccountService) loadIndex(ctx context.Context) (map[string]model.Account, error) {
	index := make(map[string]model.Account)
	if _, err := storage.GetJSON(ctx, s.store, storage.AccountsIndexKey, &index); err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	return index, nil
}

// Signup 创建账号并初始化默认资料
func (s *AccountService) Signup(ctx context.Context, input SignupInput) (model.Account, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	if err := validateInput(ErrAccountInvalidInput, input); err != nil {
		return model.Account{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.Account{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex(ctx)
	if err != nil {
		return model.Account{}, err
	}
	if _, exists := index[input.Email]; exists {
		return model.Account{}, ErrAccountExists
	}

	account := model.Account{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hashed),
		CreatedAt:    s.clock().UTC(),
	}
	index[account.Email] = account

	if err := storage.SetJSON(ctx, s.store, storage.AccountsIndexKey, index); err != nil {
		return model.Account{}, fmt.Errorf("save account: %w", err)
	}

	if s.profiles != nil {
		if _, err := s.profiles.Init(ctx, account); err != nil {
			return model.Account{}, err
		}
	}
	return account, nil
}

// Login 校验邮箱与密码
func (s *AccountService) Login(ctx context.Context, email, password string) (model.Account, error) {
	index, err := s.loadIndex(ctx)
	if err != nil {
		return model.Account{}, err
	}

	account, ok := index[normalizeEmail(email)]
	if !ok {
		return model.Account{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return model.Account{}, ErrInvalidCredentials
	}
	return account, nil
}

// Get 根据 ID 获取账号
func (s *AccountService) Get(ctx context.Context, userID string) (model.Account, error) {
	index, err := s.loadIndex(ctx)
	if err != nil {
		return model.Account{}, err
	}
	for _, account := range index {
		if account.ID == userID {
			return account, nil
		}
	}
	return model.Account{}, ErrAccountNotFound
}

// List 返回全部账号，按创建时间排序
func (s *AccountService) List(ctx context.Context) ([]model.Account, error) {
	index, err := s.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	accounts := make([]model.Account, 0, len(index))
	for _, account := range index {
		accounts = append(accounts, account)
	}
	slices.SortFunc(accounts, func(a, b model.Account) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Email, b.Email)
	})
	return accounts, nil
}

// IssueToken 为账号签发 HS256 访问令牌
func (s *AccountService) IssueToken(account model.Account) (string, time.Time, error) {
	now := s.clock()
	expiresAt := now.Add(s.jwtTTL)
	claims := accountClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken 校验令牌并返回用户 ID
func (s *AccountService) ParseToken(tokenString string) (string, error) {
	var claims accountClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.clock),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
