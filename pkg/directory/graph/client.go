package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/de-tools/guest-lifecycle/pkg/directory"
	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
)

const (
	moduleName    = "guestctl"
	moduleVersion = "v0.1.0"

	DefaultCloud   = "com"
	DefaultVersion = "beta"
)

// Endpoint returns the Graph base URL for a national cloud suffix and API
// version, e.g. Endpoint("com", "beta") = https://graph.microsoft.com/beta.
func Endpoint(cloud, version string) string {
	if version == "" {
		version = DefaultVersion
	}
	return fmt.Sprintf("https://%s/%s", host(cloud), version)
}

func host(cloud string) string {
	switch cloud {
	case "", DefaultCloud:
		return "graph.microsoft.com"
	case "us":
		return "graph.microsoft.us"
	case "cn":
		return "microsoftgraph.chinacloudapi.cn"
	default:
		return "graph.microsoft." + cloud
	}
}

// Scope returns the .default scope for the host serving endpoint.
func Scope(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint + "/.default"
	}
	return fmt.Sprintf("%s://%s/.default", u.Scheme, u.Host)
}

type Options struct {
	Endpoint string
	// Credential may be nil, in which case requests go out unauthenticated.
	Credential azcore.TokenCredential
	// MaxAttempts bounds the tries per request, including the first one.
	MaxAttempts       int
	TryTimeout        time.Duration
	RetryDelay        time.Duration
	MaxRetryDelay     time.Duration
	RequestsPerSecond float64
	Transport         policy.Transporter
}

// Client implements directory.Client on top of the Microsoft Graph REST API.
type Client struct {
	endpoint string
	pipeline runtime.Pipeline
}

var _ directory.Client = (*Client)(nil)

func NewClient(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("graph endpoint is required")
	}
	endpoint := strings.TrimRight(opts.Endpoint, "/")

	perRetry := []policy.Policy{newRateLimitPolicy(opts.RequestsPerSecond)}
	if opts.Credential != nil {
		perRetry = append(perRetry, runtime.NewBearerTokenPolicy(opts.Credential, []string{Scope(endpoint)}, nil))
	}

	// $count and advanced $filter queries on users require eventual consistency.
	header := http.Header{}
	header.Set("ConsistencyLevel", "eventual")

	pl := runtime.NewPipeline(moduleName, moduleVersion,
		runtime.PipelineOptions{
			PerCall:  []policy.Policy{headerPolicy{header: header}},
			PerRetry: perRetry,
		},
		&policy.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    maxRetries(opts.MaxAttempts),
				TryTimeout:    opts.TryTimeout,
				RetryDelay:    opts.RetryDelay,
				MaxRetryDelay: opts.MaxRetryDelay,
			},
			Transport: opts.Transport,
		},
	)

	return &Client{endpoint: endpoint, pipeline: pl}, nil
}

// maxRetries converts an attempt budget into azcore's retry count, where a
// negative value means a single try.
func maxRetries(attempts int) int32 {
	if attempts <= 1 {
		return -1
	}
	return int32(attempts - 1)
}

func (c *Client) QueryUsers(ctx context.Context, q directory.UserQuery) (directory.Page[domain.User], error) {
	pageSize := q.PageSize
	if pageSize <= 0 || pageSize > directory.MaxPageSize {
		pageSize = directory.MaxPageSize
	}

	params := url.Values{}
	if q.Filter != "" {
		params.Set("$filter", q.Filter)
	}
	if len(q.Fields) > 0 {
		params.Set("$select", strings.Join(q.Fields, ","))
	}
	params.Set("$top", strconv.Itoa(pageSize))
	if q.Count {
		params.Set("$count", "true")
	}

	p, err := fetchPage(ctx, c, "query users", c.endpoint+"/users?"+params.Encode(), mapUser)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Client) GroupTransitiveMembers(ctx context.Context, groupID string) (directory.Page[directory.DirectoryObject], error) {
	params := url.Values{}
	params.Set("$select", "id")
	params.Set("$top", strconv.Itoa(directory.MaxPageSize))

	link := fmt.Sprintf("%s/groups/%s/transitiveMembers?%s", c.endpoint, url.PathEscape(groupID), params.Encode())
	p, err := fetchPage(ctx, c, "group transitive members", link, mapDirectoryObject)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Client) CheckMemberGroups(ctx context.Context, userID string, groupIDs []string) ([]string, error) {
	link := fmt.Sprintf("%s/users/%s/checkMemberGroups", c.endpoint, url.PathEscape(userID))

	var out collection[string]
	if err := c.do(ctx, http.MethodPost, link, checkMemberGroupsRequest{GroupIDs: groupIDs}, &out); err != nil {
		return nil, directory.Wrap("check member groups", err)
	}
	return out.Value, nil
}

func (c *Client) do(ctx context.Context, method, link string, body any, out any) error {
	req, err := runtime.NewRequest(ctx, method, link)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Raw().Header.Set("Accept", "application/json")
	if body != nil {
		if err := runtime.MarshalAsJSON(req, body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	resp, err := c.pipeline.Do(req)
	if err != nil {
		return err
	}
	if !runtime.HasStatusCode(resp, http.StatusOK) {
		return runtime.NewResponseError(resp)
	}
	if err := runtime.UnmarshalAsJSON(resp, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// page is a single page of a Graph collection; W is the wire type and T the
// type handed to callers.
type page[W any, T any] struct {
	client   *Client
	op       string
	values   []T
	nextLink string
	count    *int64
	convert  func(W) T
}

func fetchPage[W any, T any](ctx context.Context, c *Client, op, link string, convert func(W) T) (*page[W, T], error) {
	var body collection[W]
	if err := c.do(ctx, http.MethodGet, link, nil, &body); err != nil {
		return nil, directory.Wrap(op, err)
	}

	values := make([]T, 0, len(body.Value))
	for _, v := range body.Value {
		values = append(values, convert(v))
	}

	return &page[W, T]{
		client:   c,
		op:       op,
		values:   values,
		nextLink: body.NextLink,
		count:    body.Count,
		convert:  convert,
	}, nil
}

func (p *page[W, T]) Values() []T {
	return p.values
}

func (p *page[W, T]) HasNext() bool {
	return p.nextLink != ""
}

func (p *page[W, T]) Next(ctx context.Context) (directory.Page[T], error) {
	if p.nextLink == "" {
		return nil, &directory.Error{Kind: directory.KindUnknown, Op: p.op, Err: fmt.Errorf("no next page")}
	}
	next, err := fetchPage(ctx, p.client, p.op, p.nextLink, p.convert)
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (p *page[W, T]) TotalCount() (int64, bool) {
	if p.count == nil {
		return 0, false
	}
	return *p.count, true
}
