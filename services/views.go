package services

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/memevote/backend/database"
	"github.com/memevote/backend/errs"
	"github.com/memevote/backend/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	AnonymousUsername = "Anonymous"
	DefaultAvatar     = "default-avatar.png"
)

// UserSummary is the public face of a user. Email is only filled in for the user's own profile.
type UserSummary struct {
	ID             uint    `json:"id,omitempty"`
	Username       string  `json:"username"`
	Email          string  `json:"email,omitempty"`
	ProfilePicture *string `json:"profilePicture"`
}

type CategoryView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type VoterView struct {
	ID             uint   `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
}

type MemeView struct {
	ID         uint           `json:"id"`
	Title      string         `json:"title"`
	URL        string         `json:"url"`
	CreatedAt  time.Time      `json:"createdAt"`
	User       UserSummary    `json:"user"`
	Categories []CategoryView `json:"categories"`
	VoteCount  int64          `json:"voteCount"`
	UserVoted  bool           `json:"userVoted"`
	Voters     []VoterView    `json:"voters"`
}

type CommentView struct {
	ID        uint        `json:"id"`
	Text      string      `json:"text"`
	CreatedAt time.Time   `json:"createdAt"`
	User      UserSummary `json:"user"`
	MemeID    uint        `json:"memeId"`
}

// VoteUpdate is the VOTE_UPDATED payload. UserVoted reflects the user who toggled.
type VoteUpdate struct {
	MemeID    uint  `json:"memeId"`
	VoteCount int64 `json:"voteCount"`
	UserVoted bool  `json:"userVoted"`
}

func newUserSummary(user *models.User) UserSummary {
	if user == nil {
		return UserSummary{Username: AnonymousUsername}
	}
	return UserSummary{
		ID:             user.ID,
		Username:       user.Username,
		ProfilePicture: user.ProfilePicture,
	}
}

func newCategoryViews(categories []models.Category) []CategoryView {
	views := make([]CategoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, CategoryView{ID: c.ID, Name: c.Name})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	return views
}

func newCommentView(comment *models.Comment) CommentView {
	return CommentView{
		ID:        comment.ID,
		Text:      comment.Text,
		CreatedAt: comment.CreatedAt,
		User:      newUserSummary(&comment.User),
		MemeID:    comment.MemeID,
	}
}

// Sort orders meme listings. Field is one of createdAt, title, voteCount or id.
type Sort struct {
	Field string
	Desc  bool
}

var DefaultSort = Sort{Field: "createdAt", Desc: true}

// ParseSort reads "field" or "field,dir" where dir is asc or desc. An empty string
// yields DefaultSort.
func ParseSort(raw string) (Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultSort, nil
	}

	field, dir, _ := strings.Cut(raw, ",")
	field = strings.TrimSpace(field)
	if !database.IsMemeOrderField(field) {
		return Sort{}, errs.NewInvalidFieldError("sort", fmt.Sprintf("cannot sort by %q", field))
	}

	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
		return Sort{Field: field}, nil
	case "desc":
		return Sort{Field: field, Desc: true}, nil
	default:
		return Sort{}, errs.NewInvalidFieldError("sort", fmt.Sprintf("unknown direction %q", dir))
	}
}

// PageRequest selects a zero-based page. A zero Size means DefaultPageSize.
type PageRequest struct {
	Page int
	Size int
	Sort Sort
}

func NewPageRequest(page, size int, sort Sort) (PageRequest, error) {
	if page < 0 {
		return PageRequest{}, errs.NewInvalidFieldError("page", "must not be negative")
	}
	if size < 0 {
		return PageRequest{}, errs.NewInvalidFieldError("size", "must not be negative")
	}
	req := PageRequest{Page: page, Size: size, Sort: sort}.normalized()
	if req.Page > math.MaxInt/req.Size {
		return PageRequest{}, errs.NewInvalidFieldError("page", "too large for the page size")
	}
	return req, nil
}

func (p PageRequest) normalized() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	switch {
	case p.Size <= 0:
		p.Size = DefaultPageSize
	case p.Size > MaxPageSize:
		p.Size = MaxPageSize
	}
	if p.Sort.Field == "" {
		p.Sort = DefaultSort
	}
	return p
}

// Offset saturates at math.MaxInt so an oversized page reads past the end instead of wrapping.
func (p PageRequest) Offset() int {
	p = p.normalized()
	if p.Page > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return p.Page * p.Size
}

// Page is one slice of a listing plus the numbers a client needs to page through it.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
	Empty         bool  `json:"empty"`
}

func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		TotalElements: total,
		TotalPages:    totalPages,
		Number:        req.Page,
		Size:          req.Size,
		First:         req.Page == 0,
		Last:          req.Page >= totalPages-1,
		Empty:         len(content) == 0,
	}
}
