package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"pulsechat/domain"
	"pulsechat/errors"
	"pulsechat/repositories"
)

type IGroupService interface {
	CreateGroup(ownerID, name string) (domain.Group, error)
	AddMember(callerID, groupID, userID string) error
	Members(groupID string) ([]string, error)
	GroupsFor(userID string) ([]string, error)
}

type GroupService struct {
	groups repositories.IGroupRepository
	users  repositories.IUserRepository
}

func NewGroupService(groups repositories.IGroupRepository, users repositories.IUserRepository) *GroupService {
	return &GroupService{groups: groups, users: users}
}

func (s *GroupService) CreateGroup(ownerID, name string) (domain.Group, error) {
	group := domain.Group{
		ID:        uuid.New().String(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.groups.CreateGroup(group); err != nil {
		return domain.Group{}, err
	}
	return group, nil
}

// AddMember admits a user into a group. Only the group owner may do this.
func (s *GroupService) AddMember(callerID, groupID, userID string) error {
	group, err := s.groups.GetGroup(groupID)
	if err != nil {
		return err
	}
	if group.OwnerID != callerID {
		return fmt.Errorf("%w: only the group owner can add members", errors.ErrForbidden)
	}
	if _, err := s.users.GetByID(userID); err != nil {
		return err
	}
	return s.groups.AddMember(groupID, userID)
}

func (s *GroupService) Members(groupID string) ([]string, error) {
	return s.groups.Members(groupID)
}

func (s *GroupService) GroupsFor(userID string) ([]string, error) {
	return s.groups.GroupsFor(userID)
}
