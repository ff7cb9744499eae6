package guests

import (
	"context"

	"github.com/de-tools/guest-lifecycle/pkg/directory"
	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
	"github.com/stretchr/testify/mock"
)

// fakePage is an in-memory page chain. A page whose nextErr is set reports
// another page but fails to fetch it.
type fakePage[T any] struct {
	values  []T
	next    *fakePage[T]
	nextErr error
	total   *int64
	fetched *int
}

func (p *fakePage[T]) Values() []T {
	return p.values
}

func (p *fakePage[T]) HasNext() bool {
	return p.next != nil || p.nextErr != nil
}

func (p *fakePage[T]) Next(_ context.Context) (directory.Page[T], error) {
	if p.fetched != nil {
		*p.fetched++
	}
	if p.nextErr != nil {
		return nil, p.nextErr
	}
	return p.next, nil
}

func (p *fakePage[T]) TotalCount() (int64, bool) {
	if p.total == nil {
		return 0, false
	}
	return *p.total, true
}

// chain links chunks into consecutive pages.
func chain[T any](chunks ...[]T) *fakePage[T] {
	var head, tail *fakePage[T]
	for _, c := range chunks {
		p := &fakePage[T]{values: c}
		if head == nil {
			head = p
		} else {
			tail.next = p
		}
		tail = p
	}
	if head == nil {
		head = &fakePage[T]{}
	}
	return head
}

func last[T any](p *fakePage[T]) *fakePage[T] {
	for p.next != nil {
		p = p.next
	}
	return p
}

type mockClient struct {
	mock.Mock
}

func (m *mockClient) QueryUsers(ctx context.Context, q directory.UserQuery) (directory.Page[domain.User], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(directory.Page[domain.User]), args.Error(1)
}

func (m *mockClient) GroupTransitiveMembers(ctx context.Context, groupID string) (directory.Page[directory.DirectoryObject], error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(directory.Page[directory.DirectoryObject]), args.Error(1)
}

func (m *mockClient) CheckMemberGroups(ctx context.Context, userID string, groupIDs []string) ([]string, error) {
	args := m.Called(ctx, userID, groupIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func users(ids ...string) []domain.User {
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.User{ID: id})
	}
	return out
}

func userObjects(ids ...string) []directory.DirectoryObject {
	out := make([]directory.DirectoryObject, 0, len(ids))
	for _, id := range ids {
		out = append(out, directory.DirectoryObject{ID: id, ODataType: directory.ODataTypeUser})
	}
	return out
}

func userIDs(us []domain.User) []string {
	ids := make([]string, 0, len(us))
	for _, u := range us {
		ids = append(ids, u.ID)
	}
	return ids
}
