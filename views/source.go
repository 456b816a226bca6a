package views

import (
	"context"
	"encoding/json"
	"net/url"

	log "github.com/sirupsen/logrus"

	"siteboard/domain"
	"siteboard/storage"
)

// Source is the board backend for one site, reached over the REST client.
type Source struct {
	client *storage.Client
	dir    storage.Directory
	def    *Definition
	site   string
	logger *log.Logger
}

// NewSource binds def to the site scope. dir may be nil, in which case
// references keep whatever names the payload carries.
func NewSource(client *storage.Client, dir storage.Directory, def *Definition, site string, logger *log.Logger) *Source {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Source{client: client, dir: dir, def: def, site: site, logger: logger}
}

// Path returns the collection path of the board.
func (s *Source) Path() string {
	return CollectionPath(s.site, s.def)
}

// CollectionPath is the REST collection of def within site.
func CollectionPath(site string, def *Definition) string {
	return "/api/sites/" + url.PathEscape(site) + "/" + def.Resource
}

func (s *Source) Items(ctx context.Context) ([]domain.WorkItem, error) {
	var raw json.RawMessage
	if err := s.client.GetJSON(ctx, s.Path(), &raw); err != nil {
		return nil, err
	}
	return s.def.Decode(raw, s.names(ctx))
}

func (s *Source) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	body := map[string]string{"status": s.def.WireStatus(status)}
	return s.client.PatchJSON(ctx, s.Path()+"/"+url.PathEscape(id), body, nil)
}

func (s *Source) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, s.Path()+"/"+url.PathEscape(id))
}

// ForgetNames drops cached directories so the next read sees new projects
// and users.
func (s *Source) ForgetNames(ctx context.Context) {
	if e, ok := s.dir.(storage.Evicter); ok {
		e.Evict(ctx)
	}
}

// names resolves the directories. A failing directory degrades to raw ids
// instead of failing the board read.
func (s *Source) names(ctx context.Context) Names {
	var n Names
	if s.dir == nil {
		return n
	}
	var err error
	if n.Projects, err = s.dir.Projects(ctx); err != nil {
		s.logger.WithField("board", s.def.Name).Warnf("project directory unavailable: %v", err)
	}
	if n.Users, err = s.dir.Users(ctx); err != nil {
		s.logger.WithField("board", s.def.Name).Warnf("user directory unavailable: %v", err)
	}
	return n
}
