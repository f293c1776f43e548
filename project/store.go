package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/jmcleod/ironseal/secret"
	"github.com/jmcleod/ironseal/storage"
)

// Store saves and loads projects through a storage.Repository, encrypting
// secrets with a secret.Codec. A Store is safe for concurrent use.
type Store struct {
	repo      storage.Repository
	codec     *secret.Codec
	namespace string
	logger    *slog.Logger
}

// NewStore returns a Store over repo.
func NewStore(repo storage.Repository, codec *secret.Codec, opts ...StoreOption) *Store {
	s := &Store{
		repo:      repo,
		codec:     codec,
		namespace: DefaultNamespace,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes p. It fails with ErrConflict if the stored project changed
// since p was loaded, or if p is new and a project of that name exists.
// On success p's version is advanced.
func (s *Store) Save(ctx context.Context, p *Project) error {
	if err := validateProject(p); err != nil {
		return err
	}
	body, err := s.render(p)
	if err != nil {
		return err
	}

	next := p.version + 1
	err = s.repo.PutCAS(ctx, s.namespace, p.Name, p.version, &storage.Document{Body: body, Version: next})
	if errors.Is(err, storage.ErrCASFailed) {
		return fmt.Errorf("%w: %s", ErrConflict, p.Name)
	}
	if err != nil {
		return fmt.Errorf("saving project %s: %w", p.Name, err)
	}
	p.version = next
	s.logger.Debug("project saved", slog.String("project", p.Name), slog.Uint64("version", next))
	return nil
}

// Load reads the project called name. Secret values that cannot be
// decrypted are taken as plaintext.
func (s *Store) Load(ctx context.Context, name string) (*Project, error) {
	doc, err := s.get(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.parse(doc)
}

// ConfigText returns the stored document exactly as persisted.
func (s *Store) ConfigText(ctx context.Context, name string) (string, error) {
	doc, err := s.get(ctx, name)
	if err != nil {
		return "", err
	}
	return string(doc.Body), nil
}

// List returns the names of all stored projects in ascending order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	names, err := s.repo.List(ctx, s.namespace)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return names, nil
}

// Delete removes the project called name.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.repo.Delete(ctx, s.namespace, name)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", name, err)
	}
	return nil
}

// Rename moves a project to a new name atomically. Stored secret values are
// carried over unchanged.
func (s *Store) Rename(ctx context.Context, from, to string) error {
	if err := validateName(to, "project name"); err != nil {
		return err
	}
	err := s.repo.Batch(ctx, s.namespace, func(tx storage.BatchTx) error {
		doc, err := tx.Get(from)
		if err != nil {
			return err
		}
		var jp jsonProject
		if err := json.Unmarshal(doc.Body, &jp); err != nil {
			return fmt.Errorf("decoding project %s: %w", from, err)
		}
		jp.Name = to
		body, err := marshal(&jp)
		if err != nil {
			return err
		}
		if err := tx.PutCAS(to, 0, &storage.Document{Body: body, Version: 1}); err != nil {
			return err
		}
		return tx.Delete(from)
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, from)
	case errors.Is(err, storage.ErrCASFailed):
		return fmt.Errorf("%w: %s already exists", ErrConflict, to)
	case err != nil:
		return fmt.Errorf("renaming project %s: %w", from, err)
	}
	return nil
}

// Upgrade loads and re-saves every project, at most concurrency at a time,
// so that secrets still stored in a legacy format or as plaintext are
// rewritten as current envelopes. Projects whose stored form would not
// change are left alone. It returns the number of projects rewritten.
func (s *Store) Upgrade(ctx context.Context, concurrency int) (int, error) {
	names, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if concurrency < 1 {
		concurrency = 1
	}

	var rewritten atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, name := range names {
		g.Go(func() error {
			changed, err := s.upgradeOne(ctx, name)
			if err != nil {
				return err
			}
			if changed {
				rewritten.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()
	return int(rewritten.Load()), err
}

func (s *Store) upgradeOne(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	doc, err := s.get(ctx, name)
	if err != nil {
		return false, err
	}
	p, err := s.parse(doc)
	if err != nil {
		return false, err
	}
	body, err := s.render(p)
	if err != nil {
		return false, err
	}
	if string(body) == string(doc.Body) {
		return false, nil
	}

	err = s.repo.PutCAS(ctx, s.namespace, name, doc.Version, &storage.Document{Body: body, Version: doc.Version + 1})
	if errors.Is(err, storage.ErrCASFailed) {
		return false, fmt.Errorf("%w: %s", ErrConflict, name)
	}
	if err != nil {
		return false, fmt.Errorf("upgrading project %s: %w", name, err)
	}
	s.logger.Info("project upgraded", slog.String("project", name))
	return true, nil
}

func (s *Store) get(ctx context.Context, name string) (*storage.Document, error) {
	doc, err := s.repo.Get(ctx, s.namespace, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading project %s: %w", name, err)
	}
	return doc, nil
}

func (s *Store) render(p *Project) ([]byte, error) {
	jp := jsonProject{
		Name:        p.Name,
		Description: p.Description,
		Parameters:  make([]jsonParameter, 0, len(p.Parameters)),
	}
	for _, param := range p.Parameters {
		jparam := jsonParameter{Name: param.Name, Description: param.Description}
		if param.DefaultValue != nil {
			enc, err := s.codec.Encode(param.DefaultValue)
			if err != nil {
				return nil, fmt.Errorf("encrypting parameter %s of %s: %w", param.Name, p.Name, err)
			}
			jparam.DefaultValue = &enc
		}
		jp.Parameters = append(jp.Parameters, jparam)
	}
	return marshal(&jp)
}

func (s *Store) parse(doc *storage.Document) (*Project, error) {
	var jp jsonProject
	if err := json.Unmarshal(doc.Body, &jp); err != nil {
		return nil, fmt.Errorf("decoding project: %w", err)
	}
	p := &Project{
		Name:        jp.Name,
		Description: jp.Description,
		Parameters:  make([]PasswordParameter, 0, len(jp.Parameters)),
		version:     doc.Version,
	}
	for _, jparam := range jp.Parameters {
		raw := ""
		if jparam.DefaultValue != nil {
			raw = *jparam.DefaultValue
		}
		p.Parameters = append(p.Parameters, PasswordParameter{
			Name:         jparam.Name,
			Description:  jparam.Description,
			DefaultValue: s.codec.FromString(raw),
		})
	}
	return p, nil
}

func marshal(jp *jsonProject) ([]byte, error) {
	body, err := json.MarshalIndent(jp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding project: %w", err)
	}
	return body, nil
}
