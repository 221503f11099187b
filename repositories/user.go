//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"pulsechat/domain"
	"pulsechat/errors"
)

// Fuzzy suggestion bounds for unknown usernames.
const (
	maxSuggestions        = 5
	maxSuggestionDistance = 3
)

type IUserRepository interface {
	CreateUser(username, passwordHash string) (Account, error)
	GetByUsername(username string) (Account, error)
	GetByID(id string) (Account, error)
	SetOnline(id string, online bool) error
	SetSession(id, sessionID string) error
	ClearSession(sessionID string) error
	GetBySession(sessionID string) (Account, error)
	SuggestUsernames(input, excludeID string) ([]string, error)
}

// Account is the repository-level representation of a user, including the
// credential hash that never leaves the service layer.
type Account struct {
	ID             string
	Username       string
	PasswordHash   string
	ProfilePicture string
	CreatedAt      time.Time
	IsOnline       bool
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

type diskAccount struct {
	ID             string    `cbor:"1,keyasint"`
	Username       string    `cbor:"2,keyasint"`
	PasswordHash   string    `cbor:"3,keyasint"`
	ProfilePicture string    `cbor:"4,keyasint"`
	CreatedAt      time.Time `cbor:"5,keyasint"`
	IsOnline       bool      `cbor:"6,keyasint"`
}

// CreateUser persists a new account. The username is reserved through a
// dedicated index key inside the same transaction, so two concurrent
// registrations of the same name cannot both commit.
func (u *UserRepository) CreateUser(username, passwordHash string) (Account, error) {
	account := Account{
		ID:             uuid.New().String(),
		Username:       username,
		PasswordHash:   passwordHash,
		ProfilePicture: domain.DefaultProfilePicture,
		CreatedAt:      time.Now().UTC(),
	}
	data, err := cbor.Marshal(fromAccount(account))
	if err != nil {
		return Account{}, err
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		nameKey := []byte("username:" + strings.ToLower(username))
		if _, err := txn.Get(nameKey); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(nameKey, []byte(account.ID)); err != nil {
			return err
		}
		return txn.Set([]byte("user:"+account.ID), data)
	})
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

func (u *UserRepository) GetByUsername(username string) (Account, error) {
	var account Account
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("username:" + strings.ToLower(username)))
		if err != nil {
			return err
		}
		var id []byte
		if err := item.Value(func(val []byte) error {
			id = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}
		account, err = getAccount(txn, string(id))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return Account{}, errors.ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

func (u *UserRepository) GetByID(id string) (Account, error) {
	var account Account
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		account, err = getAccount(txn, id)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return Account{}, errors.ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

func (u *UserRepository) SetOnline(id string, online bool) error {
	return u.mutate(id, func(a *diskAccount) { a.IsOnline = online })
}

// SetSession binds a login session id to a user.
func (u *UserRepository) SetSession(id, sessionID string) error {
	return u.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("session:"+sessionID), []byte(id))
	})
}

// ClearSession is idempotent: clearing an unknown session is not an error.
func (u *UserRepository) ClearSession(sessionID string) error {
	return u.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte("session:" + sessionID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

func (u *UserRepository) GetBySession(sessionID string) (Account, error) {
	var account Account
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("session:" + sessionID))
		if err != nil {
			return err
		}
		var id []byte
		if err := item.Value(func(val []byte) error {
			id = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}
		account, err = getAccount(txn, string(id))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return Account{}, errors.ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// SuggestUsernames scans the username index and returns up to five known
// names within edit distance three of the input, closest first. Matching
// runs on the lowercased index keys; the returned names are the stored
// display usernames.
func (u *UserRepository) SuggestUsernames(input, excludeID string) ([]string, error) {
	type candidate struct {
		name     string
		distance int
	}
	var candidates []candidate

	err := u.db.View(func(txn *badger.Txn) error {
		prefix := []byte("username:")
		options := badger.DefaultIteratorOptions
		it := txn.NewIterator(options)
		defer it.Close()

		lowered := strings.ToLower(input)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			name := string(item.Key()[len(prefix):])
			distance := levenshtein.ComputeDistance(lowered, name)
			if distance > maxSuggestionDistance {
				continue
			}
			var id []byte
			if err := item.Value(func(val []byte) error {
				id = append([]byte(nil), val...)
				return nil
			}); err != nil {
				return err
			}
			if string(id) == excludeID {
				continue
			}
			account, err := getAccount(txn, string(id))
			if err != nil {
				return err
			}
			candidates = append(candidates, candidate{name: account.Username, distance: distance})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if len(candidates) > maxSuggestions {
		candidates = candidates[:maxSuggestions]
	}

	suggestions := make([]string, 0, len(candidates))
	for _, c := range candidates {
		suggestions = append(suggestions, c.name)
	}
	return suggestions, nil
}

func (u *UserRepository) mutate(id string, apply func(*diskAccount)) error {
	return u.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("user:" + id))
		if err != nil {
			return err
		}
		var stored diskAccount
		if err := item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &stored)
		}); err != nil {
			return err
		}
		apply(&stored)
		data, err := cbor.Marshal(stored)
		if err != nil {
			return err
		}
		return txn.Set([]byte("user:"+id), data)
	})
}

func getAccount(txn *badger.Txn, id string) (Account, error) {
	item, err := txn.Get([]byte("user:" + id))
	if err != nil {
		return Account{}, err
	}
	var stored diskAccount
	if err := item.Value(func(val []byte) error {
		return cbor.Unmarshal(val, &stored)
	}); err != nil {
		return Account{}, err
	}
	return toAccount(stored), nil
}

func fromAccount(a Account) diskAccount {
	return diskAccount{
		ID:             a.ID,
		Username:       a.Username,
		PasswordHash:   a.PasswordHash,
		ProfilePicture: a.ProfilePicture,
		CreatedAt:      a.CreatedAt,
		IsOnline:       a.IsOnline,
	}
}

func toAccount(stored diskAccount) Account {
	return Account{
		ID:             stored.ID,
		Username:       stored.Username,
		PasswordHash:   stored.PasswordHash,
		ProfilePicture: stored.ProfilePicture,
		CreatedAt:      stored.CreatedAt,
		IsOnline:       stored.IsOnline,
	}
}
