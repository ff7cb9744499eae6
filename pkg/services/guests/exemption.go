package guests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/de-tools/guest-lifecycle/pkg/directory"
	"github.com/de-tools/guest-lifecycle/pkg/services/config"
	"github.com/rs/zerolog"
)

var ErrExemptionGroupNotFound = errors.New("exemption group not found")

// ExemptionStrategy decides whether an account is excluded from lifecycle
// action. Implementations are safe for concurrent use.
type ExemptionStrategy interface {
	// IsExempt returns an error when the decision could not be made; the
	// boolean is then meaningless.
	IsExempt(ctx context.Context, userID string) (bool, error)
	// Size is the number of configured entries: account ids for the set
	// based strategies, group ids for the remote check.
	Size() int
	Mode() config.ExemptionMode
}

// MemberSet is a read-only set of account identifiers.
type MemberSet map[string]struct{}

func NewMemberSet(ids ...string) MemberSet {
	s := make(MemberSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s MemberSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

func (s MemberSet) Len() int {
	return len(s)
}

func (s MemberSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type setStrategy struct {
	mode    config.ExemptionMode
	members MemberSet
}

func (s *setStrategy) IsExempt(_ context.Context, userID string) (bool, error) {
	if len(s.members) == 0 {
		return false, nil
	}
	return s.members.Contains(userID), nil
}

func (s *setStrategy) Size() int {
	return s.members.Len()
}

func (s *setStrategy) Mode() config.ExemptionMode {
	return s.mode
}

// Members exposes the resolved set.
func (s *setStrategy) Members() MemberSet {
	return s.members
}

// DirectList exempts the literal account ids in spec.
func DirectList(spec, delimiter string) ExemptionStrategy {
	return &setStrategy{mode: config.ExemptionModeList, members: NewMemberSet(splitSpec(spec, delimiter)...)}
}

// TransitiveGroup expands the transitive membership of groupID once and
// exempts every user found in it.
func TransitiveGroup(ctx context.Context, client directory.Client, groupID string) (ExemptionStrategy, error) {
	members, err := ResolveGroupMembers(ctx, client, groupID)
	if err != nil {
		return nil, err
	}
	return &setStrategy{mode: config.ExemptionModeGroup, members: members}, nil
}

// ResolveGroupMembers pages through the group's transitive membership and
// collects the distinct user ids. A missing group is fatal; any other
// failure yields an empty set.
func ResolveGroupMembers(ctx context.Context, client directory.Client, groupID string) (MemberSet, error) {
	logger := zerolog.Ctx(ctx).With().Str("group", groupID).Logger()
	start := time.Now()
	members := MemberSet{}

	page, err := client.GroupTransitiveMembers(ctx, groupID)
	for err == nil {
		for _, obj := range page.Values() {
			if obj.IsUser() && obj.ID != "" {
				members[obj.ID] = struct{}{}
			}
		}
		if !page.HasNext() {
			break
		}
		if err = ctx.Err(); err != nil {
			break
		}
		page, err = page.Next(ctx)
	}

	if err != nil {
		if directory.IsNotFound(err) {
			logger.Error().Err(err).Msg("exemption group membership retrieval failed: group not found")
			return nil, fmt.Errorf("%w: %s: %w", ErrExemptionGroupNotFound, groupID, err)
		}
		logger.Warn().Err(err).
			Int("collected", len(members)).
			Msg("exemption group membership retrieval failed, continuing without exemptions")
		return MemberSet{}, nil
	}

	logger.Info().
		Int("members", len(members)).
		Dur("elapsed", time.Since(start)).
		Msg("exemption group membership resolved")
	return members, nil
}

type memberCheckStrategy struct {
	client   directory.Client
	groupIDs []string
}

// MemberCheck asks the directory, per account, whether it belongs to any of
// the groups in spec.
func MemberCheck(client directory.Client, spec, delimiter string) ExemptionStrategy {
	return &memberCheckStrategy{client: client, groupIDs: splitSpec(spec, delimiter)}
}

func (s *memberCheckStrategy) IsExempt(ctx context.Context, userID string) (bool, error) {
	if len(s.groupIDs) == 0 {
		return false, nil
	}

	groups, err := s.client.CheckMemberGroups(ctx, userID, s.groupIDs)
	switch {
	case err == nil:
		return len(groups) > 0, nil
	case directory.IsNotFound(err):
		// A vanished account is left alone.
		return true, nil
	default:
		zerolog.Ctx(ctx).Warn().Err(err).Str("user", userID).Msg("member group check failed")
		return false, directory.Wrap("check member groups", err)
	}
}

func (s *memberCheckStrategy) Size() int {
	return len(s.groupIDs)
}

func (s *memberCheckStrategy) Mode() config.ExemptionMode {
	return config.ExemptionModeCheck
}

// ResolveExemptions selects and prepares the exemption strategy once at
// startup. An empty spec yields an empty list regardless of mode.
func ResolveExemptions(ctx context.Context, client directory.Client, s config.ExemptionSettings) (ExemptionStrategy, error) {
	logger := zerolog.Ctx(ctx)

	var (
		strategy ExemptionStrategy
		err      error
	)
	switch {
	case strings.TrimSpace(s.Spec) == "":
		logger.Info().Msg("no exemption group specified, all users will be in scope")
		return DirectList("", s.Delimiter), nil
	case s.Mode == config.ExemptionModeList:
		strategy = DirectList(s.Spec, s.Delimiter)
	case s.Mode == config.ExemptionModeCheck:
		strategy = MemberCheck(client, s.Spec, s.Delimiter)
	case s.Mode == config.ExemptionModeGroup:
		strategy, err = TransitiveGroup(ctx, client, strings.TrimSpace(s.Spec))
	default:
		return nil, fmt.Errorf("unsupported exemption mode: %q", s.Mode)
	}
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("mode", string(strategy.Mode())).
		Int("size", strategy.Size()).
		Msgf("total of %d exemption entries", strategy.Size())
	return strategy, nil
}

func splitSpec(spec, delimiter string) []string {
	if delimiter == "" {
		delimiter = ";"
	}
	var ids []string
	for _, part := range strings.Split(spec, delimiter) {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
