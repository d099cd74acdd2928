// password хэширует и проверяет пароли пользователей (bcrypt).
// Открытый пароль и дайджест никогда не логируются.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword — попытка захэшировать пустой пароль.
var ErrEmptyPassword = errors.New("password is empty")

// Hasher — bcrypt с заданной стоимостью. Соль случайная на каждый вызов Hash,
// поэтому два одинаковых пароля дают разные дайджесты.
type Hasher struct {
	cost int
}

// New создаёт Hasher. Стоимость вне допустимого диапазона bcrypt заменяется на DefaultCost.
func New(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &Hasher{cost: cost}
}

// Hash возвращает bcrypt-дайджест пароля.
func (h *Hasher) Hash(plain string) (string, error) {
	const op = "password.Hash"

	if plain == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(b), nil
}

// Verify сравнивает пароль с дайджестом. Любая ошибка bcrypt трактуется как несовпадение.
func (h *Hasher) Verify(plain, digest string) bool {
	if plain == "" || digest == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
