//go:generate go run go.uber.org/mock/mockgen -source=contact.go -destination=../mocks/mock_contact_repository.go -package=mocks
package repositories

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"

	"pulsechat/domain"
	"pulsechat/errors"
)

type IContactRepository interface {
	Create(edge domain.ContactEdge) error
	Get(ownerID, peerID string) (domain.ContactEdge, error)
	Update(edge domain.ContactEdge) error
	UpdatePair(owner, reciprocal domain.ContactEdge) error
	ListByOwner(ownerID string) ([]domain.ContactEdge, error)
}

type ContactRepository struct {
	db *badger.DB
}

func NewContactRepository(db *badger.DB) IContactRepository {
	return &ContactRepository{db: db}
}

// diskEdge is the stored form of a contact edge.
type diskEdge struct {
	OwnerID          string     `cbor:"1,keyasint"`
	PeerID           string     `cbor:"2,keyasint"`
	Status           string     `cbor:"3,keyasint"`
	Streak           uint32     `cbor:"4,keyasint"`
	LastStreakUpdate string     `cbor:"5,keyasint"`
	TimeoutUntil     *time.Time `cbor:"6,keyasint,omitempty"`
	CreatedAt        time.Time  `cbor:"7,keyasint"`
}

func edgeKey(ownerID, peerID string) []byte {
	return []byte(fmt.Sprintf("edge:%s:%s", ownerID, peerID))
}

// Create stores a new edge, failing if one already exists for the pair.
func (r *ContactRepository) Create(edge domain.ContactEdge) error {
	data, err := cbor.Marshal(fromEdge(edge))
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		key := edgeKey(edge.OwnerID, edge.PeerID)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrAlreadyExists
		}
		return txn.Set(key, data)
	})
}

func (r *ContactRepository) Get(ownerID, peerID string) (domain.ContactEdge, error) {
	var stored diskEdge
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(edgeKey(ownerID, peerID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &stored)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.ContactEdge{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.ContactEdge{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return toEdge(stored), nil
}

func (r *ContactRepository) Update(edge domain.ContactEdge) error {
	data, err := cbor.Marshal(fromEdge(edge))
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(edgeKey(edge.OwnerID, edge.PeerID), data)
	})
}

// UpdatePair writes both directions of a pair in a single transaction.
// A joint transition must never be half applied: either both edges commit
// or neither does.
func (r *ContactRepository) UpdatePair(owner, reciprocal domain.ContactEdge) error {
	ownerData, err := cbor.Marshal(fromEdge(owner))
	if err != nil {
		return err
	}
	reciprocalData, err := cbor.Marshal(fromEdge(reciprocal))
	if err != nil {
		return err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(edgeKey(owner.OwnerID, owner.PeerID), ownerData); err != nil {
			return err
		}
		return txn.Set(edgeKey(reciprocal.OwnerID, reciprocal.PeerID), reciprocalData)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return nil
}

// ListByOwner returns every edge owned by a user via a prefix scan.
func (r *ContactRepository) ListByOwner(ownerID string) ([]domain.ContactEdge, error) {
	var edges []domain.ContactEdge
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("edge:%s:", ownerID))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var stored diskEdge
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &stored)
			})
			if err != nil {
				return err
			}
			edges = append(edges, toEdge(stored))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return edges, nil
}

func fromEdge(edge domain.ContactEdge) diskEdge {
	return diskEdge{
		OwnerID:          edge.OwnerID,
		PeerID:           edge.PeerID,
		Status:           string(edge.Status),
		Streak:           edge.Streak,
		LastStreakUpdate: edge.LastStreakUpdate,
		TimeoutUntil:     edge.TimeoutUntil,
		CreatedAt:        edge.CreatedAt,
	}
}

func toEdge(stored diskEdge) domain.ContactEdge {
	return domain.ContactEdge{
		OwnerID:          stored.OwnerID,
		PeerID:           stored.PeerID,
		Status:           domain.ContactStatus(stored.Status),
		Streak:           stored.Streak,
		LastStreakUpdate: stored.LastStreakUpdate,
		TimeoutUntil:     stored.TimeoutUntil,
		CreatedAt:        stored.CreatedAt,
	}
}
