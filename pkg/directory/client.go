package directory

import (
	"context"

	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
)

// MaxPageSize is the largest page the directory service will return.
const MaxPageSize = 999

// ODataTypeUser marks user principals in a membership listing.
const ODataTypeUser = "#microsoft.graph.user"

type UserQuery struct {
	Filter   string
	Fields   []string
	PageSize int
	// Count asks the service to report the total number of matches.
	Count bool
}

// DirectoryObject is a member entry returned by a group membership listing.
type DirectoryObject struct {
	ID        string
	ODataType string
}

func (o DirectoryObject) IsUser() bool {
	return o.ODataType == ODataTypeUser
}

// Page is one page of a paginated listing. Next fetches the following page
// and must only be called when HasNext reports true.
type Page[T any] interface {
	Values() []T
	HasNext() bool
	Next(ctx context.Context) (Page[T], error)
	// TotalCount reports the total number of matches when the service
	// returned one.
	TotalCount() (int64, bool)
}

type Client interface {
	QueryUsers(ctx context.Context, query UserQuery) (Page[domain.User], error)
	GroupTransitiveMembers(ctx context.Context, groupID string) (Page[DirectoryObject], error)
	// CheckMemberGroups returns the subset of groupIDs the user is a
	// transitive member of.
	CheckMemberGroups(ctx context.Context, userID string, groupIDs []string) ([]string, error)
}
