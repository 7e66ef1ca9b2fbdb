// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/vscan-tui/internal/model"
)

// Errors returned by the store. Handlers map them to the backend messages.
var (
	ErrEmailExists          = errors.New("mockserver: email already registered")
	ErrInvalidCredentials   = errors.New("mockserver: invalid credentials")
	ErrUserNotFound         = errors.New("mockserver: user not found")
	ErrConversationNotFound = errors.New("mockserver: conversation not found")
	ErrDuplicateTitle       = errors.New("mockserver: duplicate conversation title")
	ErrNotUserMessage       = errors.New("mockserver: invalid message index or not a user message")
	ErrNoReply              = errors.New("mockserver: no assistant response after this message")
	ErrFileNotFound         = errors.New("mockserver: file not found")
	ErrNoScans              = errors.New("mockserver: no scans")
	ErrNoResetPending       = errors.New("mockserver: no password reset pending")
)

// snippetContext is the number of characters kept on each side of a search
// hit inside a long message.
const (
	snippetContext  = 30
	snippetMaxChars = 80
)

// =============================================================================
// RECORDS
// =============================================================================

type account struct {
	id           string
	userName     string
	email        string
	passwordHash []byte
	img          *model.Image
	resetSecret  string

	// convs keeps creation order, as the backend stores them.
	convs []*model.Conversation

	// scans are newest first.
	scans []model.ScanResult
}

func (a *account) conversation(id string) (int, *model.Conversation) {
	for i, c := range a.convs {
		if c.ID == id {
			return i, c
		}
	}
	return -1, nil
}

type storedFile struct {
	ref      model.FileRef
	userID   string
	content  string
	metadata map[string]any
}

type storedImage struct {
	data        []byte
	contentType string
}

// =============================================================================
// STORE
// =============================================================================

// Store holds every account, conversation, upload and scan in memory.
//
// The Store is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*account
	byEmail  map[string]*account
	files    map[string]*storedFile
	images   map[string]storedImage

	// latest is the most recent scan by anyone, served to anonymous refreshes.
	latest *model.ScanResult

	cost int
	now  func() time.Time
}

// NewStore creates an empty store hashing passwords with the given bcrypt
// cost; 0 means bcrypt.DefaultCost.
func NewStore(cost int) *Store {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Store{
		accounts: make(map[string]*account),
		byEmail:  make(map[string]*account),
		files:    make(map[string]*storedFile),
		images:   make(map[string]storedImage),
		cost:     cost,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) stamp() model.Timestamp {
	return model.NewTimestamp(s.now())
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// lookup returns the account for id. The caller holds s.mu.
func (s *Store) lookup(id string) (*account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return a, nil
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// CreateAccount registers a user and returns the new id.
func (s *Store) CreateAccount(userName, email, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeEmail(email)
	if _, exists := s.byEmail[key]; exists {
		return "", ErrEmailExists
	}
	a := &account{
		id:           uuid.NewString(),
		userName:     strings.TrimSpace(userName),
		email:        strings.TrimSpace(email),
		passwordHash: hash,
	}
	s.accounts[a.id] = a
	s.byEmail[key] = a
	return a.id, nil
}

// Authenticate checks credentials and returns the user id.
func (s *Store) Authenticate(email, password string) (string, error) {
	s.mu.RLock()
	a, ok := s.byEmail[normalizeEmail(email)]
	s.mu.RUnlock()
	if !ok {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return a.id, nil
}

// Exists reports whether id names an account.
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[id]
	return ok
}

// DeleteAccount removes a user, leaving any issued tokens dangling.
func (s *Store) DeleteAccount(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.lookup(id)
	if err != nil {
		return err
	}
	delete(s.accounts, id)
	delete(s.byEmail, normalizeEmail(a.email))
	return nil
}

// Profile returns the user's profile.
func (s *Store) Profile(id string) (model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := s.lookup(id)
	if err != nil {
		return model.Profile{}, err
	}
	p := model.Profile{UserName: a.userName, Email: a.email}
	if a.img != nil {
		img := *a.img
		p.UserImg = &img
	}
	return p, nil
}

// RenameUser changes the display name.
func (s *Store) RenameUser(id, userName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.lookup(id)
	if err != nil {
		return err
	}
	a.userName = strings.TrimSpace(userName)
	return nil
}

// SetAvatar stores image data and points the profile at it. The previous
// image, if any, is dropped.
func (s *Store) SetAvatar(id, publicID, url string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.lookup(id)
	if err != nil {
		return err
	}
	if a.img != nil {
		delete(s.images, a.img.PublicID)
	}
	s.images[publicID] = storedImage{data: data, contentType: contentType}
	a.img = &model.Image{SecureURL: url, PublicID: publicID}
	return nil
}

// Image returns stored avatar bytes.
func (s *Store) Image(publicID string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[publicID]
	return img.data, img.contentType, ok
}

// SetResetSecret records the OTP secret for a pending password reset.
func (s *Store) SetResetSecret(email, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return ErrUserNotFound
	}
	a.resetSecret = secret
	return nil
}

// ResetSecret returns the pending OTP secret for email.
func (s *Store) ResetSecret(email string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return "", ErrUserNotFound
	}
	if a.resetSecret == "" {
		return "", ErrNoResetPending
	}
	return a.resetSecret, nil
}

// ResetPassword sets a new password and clears the pending reset.
func (s *Store) ResetPassword(email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return ErrUserNotFound
	}
	a.passwordHash = hash
	a.resetSecret = ""
	return nil
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// Conversations lists conversation metadata in creation order.
func (s *Store) Conversations(uid string) ([]model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := s.lookup(uid)
	if err != nil {
		return nil, err
	}
	out := make([]model.Conversation, 0, len(a.convs))
	for _, c := range a.convs {
		meta := c.Meta()
		meta.MessageCount = len(c.Messages)
		out = append(out, meta)
	}
	return out, nil
}

// CreateConversation adds an empty conversation.
func (s *Store) CreateConversation(uid, title string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.lookup(uid)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		title = model.DefaultTitle
	}
	now := s.stamp()
	c := &model.Conversation{
		ID:        strings.ReplaceAll(uuid.NewString(), "-", "")[:24],
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []model.Message{},
	}
	a.convs = append(a.convs, c)
	return c.Clone(), nil
}

// Conversation returns a copy of one conversation with its messages.
func (s *Store) Conversation(uid, cid string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := s.lookup(uid)
	if err != nil {
		return nil, err
	}
	_, c := a.conversation(cid)
	if c == nil {
		return nil, ErrConversationNotFound
	}
	return c.Clone(), nil
}

// DeleteConversation removes a conversation. Deleting an unknown id succeeds.
func (s *Store) DeleteConversation(uid, cid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.lookup(uid)
	if err != nil {
		return err
	}
	if i, _ := a.conversation(cid); i >= 0 {
		a.convs = append(a.convs[:i], a.convs[i+1:]...)
	}
	return nil
}

// RenameConversation retitles a conversation. Titles are unique per user,
// compared case-sensitively.
func (s *Store) RenameConversation(uid, cid, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.lookup(uid)
	if err != nil {
		return err
	}
	for _, c := range a.convs {
		if c.Title == title && c.ID != cid {
			return ErrDuplicateTitle
		}
	}
	_, c := a.conversation(cid)
	if c == nil {
		return ErrConversationNotFound
	}
	c.Title = title
	c.UpdatedAt = s.stamp()
	return nil
}

// Search matches titles first. Only when no title matches are message
// contents searched, with a snippet for every matching message.
func (s *Store) Search(uid, query string) ([]model.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := s.lookup(uid)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	results := []model.SearchResult{}
	if q == "" {
		return results, nil
	}

	for _, c := range a.convs {
		if strings.Contains(strings.ToLower(c.Title), q) {
			results = append(results, model.SearchResult{
				ID:           c.ID,
				Title:        c.Title,
				MatchType:    model.MatchTitle,
				CreatedAt:    c.CreatedAt,
				UpdatedAt:    c.UpdatedAt,
				Matches:      []string{},
				MatchIndexes: []int{},
			})
		}
	}
	if len(results) > 0 {
		return results, nil
	}

	for _, c := range a.convs {
		var matches []string
		var indexes []int
		for i, msg := range c.Messages {
			if snippet, ok := matchSnippet(msg.Content, q); ok {
				matches = append(matches, snippet)
				indexes = append(indexes, i)
			}
		}
		if len(matches) == 0 {
			continue
		}
		results = append(results, model.SearchResult{
			ID:           c.ID,
			Title:        c.Title,
			MatchType:    model.MatchMessage,
			Snippet:      matches[0],
			CreatedAt:    c.CreatedAt,
			UpdatedAt:    c.UpdatedAt,
			Matches:      matches,
			MatchIndexes: indexes,
		})
	}
	return results, nil
}

// matchSnippet finds the lowercase query q in content. Long contents are cut
// to the text around the first hit, with "..." marking each cut side.
func matchSnippet(content, q string) (string, bool) {
	runes := []rune(content)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}
	qr := []rune(q)
	at := indexRunes(lower, qr)
	if at < 0 {
		return "", false
	}
	if len(runes) <= snippetMaxChars {
		return content, true
	}

	start := max(0, at-snippetContext)
	end := min(len(runes), at+len(qr)+snippetContext)
	snippet := string(runes[start:end])
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(runes) {
		snippet += "..."
	}
	return snippet, true
}

func indexRunes(s, sub []rune) int {
	if len(sub) == 0 {
		return 0
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		match := true
		for j := range sub {
			if s[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// AppendMessages adds messages to a conversation and bumps its updated time.
func (s *Store) AppendMessages(uid, cid string, msgs ...model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.lookup(uid)
	if err != nil {
		return err
	}
	_, c := a.conversation(cid)
	if c == nil {
		return ErrConversationNotFound
	}
	c.Messages = append(c.Messages, msgs...)
	c.UpdatedAt = s.stamp()
	return nil
}

// EditMessage replaces the user message at index and regenerates the reply
// that follows it. Both previous contents are archived as versions.
func (s *Store) EditMessage(uid, cid string, index int, content string, regenerate func(prompt string) string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.lookup(uid)
	if err != nil {
		return nil, err
	}
	_, c := a.conversation(cid)
	if c == nil {
		return nil, ErrConversationNotFound
	}
	if index < 0 || index >= len(c.Messages) || c.Messages[index].Role != model.RoleUser {
		return nil, ErrNotUserMessage
	}
	if index+1 >= len(c.Messages) || c.Messages[index+1].Role != model.RoleAssistant {
		return nil, ErrNoReply
	}

	now := s.stamp()
	c.Messages[index].Edit(content, now)
	c.Messages[index+1].Edit(regenerate(content), now)
	c.UpdatedAt = now
	return c.Clone(), nil
}

// =============================================================================
// FILES
// =============================================================================

// AddFile stores an uploaded document's extracted text.
func (s *Store) AddFile(uid, cid, filename, content string) (model.FileRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookup(uid); err != nil {
		return model.FileRef{}, err
	}
	now := s.now()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	ref := model.FileRef{
		FileID:         fmt.Sprintf("%s_%s_%d", uid, cid, now.UnixNano()),
		Filename:       filename,
		UploadTime:     model.NewTimestamp(now),
		ConversationID: cid,
		Filetype:       ext,
	}
	s.files[ref.FileID] = &storedFile{
		ref:     ref,
		userID:  uid,
		content: content,
		metadata: map[string]any{
			"user_id":           uid,
			"conversation_id":   cid,
			"original_filename": filename,
			"upload_time":       now.Format(time.RFC3339Nano),
			"filetype":          ext,
		},
	}
	return ref, nil
}

// Files lists a user's uploads, newest first, optionally limited to one
// conversation.
func (s *Store) Files(uid, cid string) []model.FileRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.FileRef{}
	for _, f := range s.files {
		if f.userID != uid || (cid != "" && f.ref.ConversationID != cid) {
			continue
		}
		out = append(out, f.ref)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadTime.After(out[j].UploadTime.Time)
	})
	return out
}

// File returns the preview of an upload owned by uid.
func (s *Store) File(uid, fileID string) (*model.FilePreview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[fileID]
	if !ok || f.userID != uid {
		return nil, ErrFileNotFound
	}
	content := f.content
	runes := []rune(content)
	truncated := len(runes) > model.MaxPreviewChars
	if truncated {
		content = string(runes[:model.MaxPreviewChars])
	}
	meta := make(map[string]any, len(f.metadata))
	for k, v := range f.metadata {
		meta[k] = v
	}
	return &model.FilePreview{
		FileID:           f.ref.FileID,
		Filename:         f.ref.Filename,
		Content:          content,
		ContentTruncated: truncated,
		Metadata:         meta,
	}, nil
}

// FileContent returns the full text of an upload owned by uid.
func (s *Store) FileContent(uid, fileID string) (model.FileRef, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[fileID]
	if !ok || f.userID != uid {
		return model.FileRef{}, "", ErrFileNotFound
	}
	return f.ref, f.content, nil
}

// =============================================================================
// SCANS
// =============================================================================

// AddScan records a scan for uid ("" for anonymous) and makes it the latest.
func (s *Store) AddScan(uid string, scan model.ScanResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[uid]; ok {
		a.scans = append([]model.ScanResult{scan}, a.scans...)
	}
	latest := scan
	s.latest = &latest
}

// LatestScan returns uid's newest scan, or the newest scan by anyone when
// uid is "" or has none.
func (s *Store) LatestScan(uid string) (*model.ScanResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.accounts[uid]; ok && len(a.scans) > 0 {
		scan := a.scans[0]
		return &scan, nil
	}
	if s.latest == nil {
		return nil, ErrNoScans
	}
	scan := *s.latest
	return &scan, nil
}

// ScanHistory returns uid's scans, newest first.
func (s *Store) ScanHistory(uid string) ([]model.ScanResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := s.lookup(uid)
	if err != nil {
		return nil, err
	}
	return append([]model.ScanResult{}, a.scans...), nil
}
