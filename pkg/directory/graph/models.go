package graph

import (
	"time"

	"github.com/de-tools/guest-lifecycle/pkg/directory"
	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
)

type collection[T any] struct {
	Count    *int64 `json:"@odata.count"`
	NextLink string `json:"@odata.nextLink"`
	Value    []T    `json:"value"`
}

type signInActivityPayload struct {
	LastSignInDateTime               *time.Time `json:"lastSignInDateTime"`
	LastNonInteractiveSignInDateTime *time.Time `json:"lastNonInteractiveSignInDateTime"`
}

type userPayload struct {
	ID                              string                 `json:"id"`
	DisplayName                     string                 `json:"displayName"`
	UserPrincipalName               string                 `json:"userPrincipalName"`
	AccountEnabled                  *bool                  `json:"accountEnabled"`
	UserType                        string                 `json:"userType"`
	ExternalUserState               string                 `json:"externalUserState"`
	CreatedDateTime                 *time.Time             `json:"createdDateTime"`
	SignInSessionsValidFromDateTime *time.Time             `json:"signInSessionsValidFromDateTime"`
	SignInActivity                  *signInActivityPayload `json:"signInActivity"`
}

type directoryObjectPayload struct {
	ODataType string `json:"@odata.type"`
	ID        string `json:"id"`
}

type checkMemberGroupsRequest struct {
	GroupIDs []string `json:"groupIds"`
}

func mapUser(p userPayload) domain.User {
	u := domain.User{
		ID:                              p.ID,
		DisplayName:                     p.DisplayName,
		UserPrincipalName:               p.UserPrincipalName,
		AccountEnabled:                  p.AccountEnabled != nil && *p.AccountEnabled,
		UserType:                        p.UserType,
		ExternalUserState:               p.ExternalUserState,
		CreatedDateTime:                 p.CreatedDateTime,
		SignInSessionsValidFromDateTime: p.SignInSessionsValidFromDateTime,
	}
	if p.SignInActivity != nil {
		u.SignInActivity = domain.SignInActivity{
			LastSignIn:               p.SignInActivity.LastSignInDateTime,
			LastNonInteractiveSignIn: p.SignInActivity.LastNonInteractiveSignInDateTime,
		}
	}
	return u
}

func mapDirectoryObject(p directoryObjectPayload) directory.DirectoryObject {
	return directory.DirectoryObject{ID: p.ID, ODataType: p.ODataType}
}
