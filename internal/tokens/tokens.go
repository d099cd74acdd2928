// tokens выпускает и проверяет JWT access- и refresh-токены.
//
// Классы токенов подписываются разными секретами (HS256), поэтому компрометация
// одного секрета не позволяет подделать токен другого класса. Дополнительно
// класс пишется в claim "typ" и сверяется при проверке.
//
// Проверка чистая: не обращается к хранилищу. Сверка refresh-токена с
// сохранённым значением — забота сервисного слоя.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/session-service/internal/config"
	"github.com/pribylovaa/session-service/internal/models"
)

var (
	// ErrInvalidToken — неверная подпись/алгоритм/формат, чужой класс, issuer или audience.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired — истёк срок действия токена.
	ErrTokenExpired = errors.New("token expired")
)

// leeway — допуск на рассинхрон часов при проверке exp/iat.
const leeway = 5 * time.Second

// Kind — класс токена.
type Kind int

const (
	Access Kind = iota + 1
	Refresh
)

func (k Kind) String() string {
	switch k {
	case Access:
		return "access"
	case Refresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Claims — полезная нагрузка токенов.
// Для refresh-токена профильные поля пустые.
type Claims struct {
	UserID   string `json:"uid"`
	Type     string `json:"typ"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name,omitempty"`
	jwt.RegisteredClaims

	uid uuid.UUID
}

// User возвращает идентификатор пользователя, проверенный в Verify.
func (c *Claims) User() uuid.UUID {
	return c.uid
}

// Manager — выпуск и проверка токенов обоих классов.
type Manager struct {
	cfg config.AuthConfig
	now func() time.Time
}

// New создаёт Manager по auth-конфигурации.
func New(cfg config.AuthConfig) *Manager {
	return &Manager{cfg: cfg, now: time.Now}
}

// IssueAccess выпускает access-токен с профильными claims пользователя.
func (m *Manager) IssueAccess(u models.PublicUser) (string, time.Time, error) {
	const op = "tokens.IssueAccess"

	token, exp, err := m.issue(Access, u.ID, func(c *Claims) {
		c.Email = u.Email
		c.Username = u.Username
		c.FullName = u.FullName
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return token, exp, nil
}

// IssueRefresh выпускает refresh-токен. Уникальный jti гарантирует, что два
// токена, выпущенные в одну секунду, всё равно различаются.
func (m *Manager) IssueRefresh(userID uuid.UUID) (string, time.Time, error) {
	const op = "tokens.IssueRefresh"

	token, exp, err := m.issue(Refresh, userID, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return token, exp, nil
}

func (m *Manager) issue(kind Kind, userID uuid.UUID, fill func(*Claims)) (string, time.Time, error) {
	if userID == uuid.Nil {
		return "", time.Time{}, fmt.Errorf("empty user id")
	}

	now := m.now().UTC()
	exp := now.Add(m.ttl(kind))

	claims := Claims{
		UserID: userID.String(),
		Type:   kind.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			Issuer:    m.cfg.Issuer,
			Audience:  jwt.ClaimStrings(m.cfg.Audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if fill != nil {
		fill(&claims)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret(kind))
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, exp, nil
}

// Verify проверяет подпись секретом заданного класса, срок действия, issuer,
// audience и claim "typ". Возвращает ErrTokenExpired для истёкших токенов
// и ErrInvalidToken во всех прочих случаях.
func (m *Manager) Verify(tokenStr string, kind Kind) (*Claims, error) {
	const op = "tokens.Verify"

	if tokenStr == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.cfg.Issuer))
	}
	if len(m.cfg.Audience) > 0 {
		opts = append(opts, jwt.WithAudience(m.cfg.Audience...))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims,
		func(*jwt.Token) (any, error) { return m.secret(kind), nil },
		opts...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if !token.Valid || claims.Type != kind.String() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil || uid == uuid.Nil || claims.Subject != claims.UserID {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	claims.uid = uid

	return &claims, nil
}

func (m *Manager) ttl(kind Kind) time.Duration {
	if kind == Refresh {
		return m.cfg.RefreshTokenTTL
	}

	return m.cfg.AccessTokenTTL
}

func (m *Manager) secret(kind Kind) []byte {
	if kind == Refresh {
		return []byte(m.cfg.RefreshTokenSecret)
	}

	return []byte(m.cfg.AccessTokenSecret)
}
