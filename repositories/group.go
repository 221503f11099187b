//go:generate go run go.uber.org/mock/mockgen -source=group.go -destination=../mocks/mock_group_repository.go -package=mocks
package repositories

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"

	"pulsechat/domain"
	"pulsechat/errors"
)

type IGroupRepository interface {
	CreateGroup(g domain.Group) error
	GetGroup(id string) (domain.Group, error)
	AddMember(groupID, userID string) error
	Members(groupID string) ([]string, error)
	GroupsFor(userID string) ([]string, error)
	IsMember(groupID, userID string) (bool, error)
}

type GroupRepository struct {
	db *badger.DB
}

func NewGroupRepository(db *badger.DB) IGroupRepository {
	return &GroupRepository{db: db}
}

type diskGroup struct {
	ID        string    `cbor:"1,keyasint"`
	Name      string    `cbor:"2,keyasint"`
	OwnerID   string    `cbor:"3,keyasint"`
	CreatedAt time.Time `cbor:"4,keyasint"`
}

func (r *GroupRepository) CreateGroup(g domain.Group) error {
	data, err := cbor.Marshal(diskGroup{
		ID:        g.ID,
		Name:      g.Name,
		OwnerID:   g.OwnerID,
		CreatedAt: g.CreatedAt,
	})
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		key := []byte("grp:" + g.ID)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrAlreadyExists
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		// The owner is a member from the start.
		if err := txn.Set([]byte(memberKey(g.ID, g.OwnerID)), nil); err != nil {
			return err
		}
		return txn.Set([]byte(membershipKey(g.OwnerID, g.ID)), nil)
	})
}

func (r *GroupRepository) GetGroup(id string) (domain.Group, error) {
	var stored diskGroup
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("grp:" + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &stored)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Group{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.Group{}, err
	}
	return domain.Group{
		ID:        stored.ID,
		Name:      stored.Name,
		OwnerID:   stored.OwnerID,
		CreatedAt: stored.CreatedAt,
	}, nil
}

// AddMember writes both directions of the membership in one transaction so
// Members and GroupsFor can never disagree.
func (r *GroupRepository) AddMember(groupID, userID string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte("grp:" + groupID)); err != nil {
			if err == badger.ErrKeyNotFound {
				return errors.ErrNotFound
			}
			return err
		}
		if err := txn.Set([]byte(memberKey(groupID, userID)), nil); err != nil {
			return err
		}
		return txn.Set([]byte(membershipKey(userID, groupID)), nil)
	})
}

func (r *GroupRepository) Members(groupID string) ([]string, error) {
	return r.scanSuffix(fmt.Sprintf("grpmem:%s:", groupID))
}

func (r *GroupRepository) GroupsFor(userID string) ([]string, error) {
	return r.scanSuffix(fmt.Sprintf("usergrp:%s:", userID))
}

func (r *GroupRepository) IsMember(groupID, userID string) (bool, error) {
	found := false
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(memberKey(groupID, userID)))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

func (r *GroupRepository) scanSuffix(prefixStr string) ([]string, error) {
	var ids []string
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefixStr):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return ids, nil
}

func memberKey(groupID, userID string) string {
	return fmt.Sprintf("grpmem:%s:%s", groupID, userID)
}

func membershipKey(userID, groupID string) string {
	return fmt.Sprintf("usergrp:%s:%s", userID, groupID)
}
