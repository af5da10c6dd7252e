package service

import (
	"context"
	"fmt"
	"h2ala_backend/internal/model"
	"h2ala_backend/internal/util"
	"net/url"
	"slices"
	"strings"
	"time"
)

// LibraryService 收藏资料、直播课记录和 AI 决策日志
type LibraryService struct {
	state *LearnerState
}

func NewLibraryService(state *LearnerState) *LibraryService {
	return &LibraryService{state: state}
}

func guessResourceType(uri string) model.ResourceType {
	u, err := url.Parse(uri)
	if err != nil {
		return model.ResourceUnknown
	}
	host := strings.ToLower(u.Host)
	path := strings.ToLower(u.Path)
	switch {
	case strings.HasSuffix(path, ".pdf"):
		return model.ResourcePDF
	case strings.Contains(host, "youtube.com"), strings.Contains(host, "youtu.be"), strings.Contains(host, "vimeo.com"):
		return model.ResourceVideo
	case u.Scheme == "http" || u.Scheme == "https":
		return model.ResourceWeb
	}
	return model.ResourceUnknown
}

// SaveResource 按 URI 去重：已收藏时返回已有条目且 created 为 false
func (s *LibraryService) SaveResource(ctx context.Context, studentID string, res model.StudyResource) (out model.StudyResource, created bool, err error) {
	res.URI = strings.TrimSpace(res.URI)
	if res.URI == "" {
		return model.StudyResource{}, false, fmt.Errorf("%w: uri is required", util.ErrInvalidArgument)
	}
	if strings.TrimSpace(res.Title) == "" {
		res.Title = res.URI
	}
	if res.Type == "" {
		res.Type = guessResourceType(res.URI)
	}

	err = s.state.mutate(ctx, "save_resource", func(snap *model.Snapshot) error {
		st, err := findStudent(snap, studentID)
		if err != nil {
			return err
		}
		for _, r := range st.SavedResources {
			if r.URI == res.URI {
				out = r
				return nil
			}
		}
		if res.ID == "" {
			res.ID = model.NewID("res")
		}
		res.DateSaved = s.state.Now()
		st.SavedResources = append([]model.StudyResource{res}, st.SavedResources...)
		out, created = res, true
		return nil
	})
	return out, created, err
}

func (s *LibraryService) RemoveResource(ctx context.Context, studentID, resourceID string) error {
	return s.state.mutate(ctx, "remove_resource", func(snap *model.Snapshot) error {
		st, err := findStudent(snap, studentID)
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(st.SavedResources, func(r model.StudyResource) bool { return r.ID == resourceID })
		if idx < 0 {
			return fmt.Errorf("%w: %s", util.ErrResourceNotFound, resourceID)
		}
		st.SavedResources = slices.Delete(st.SavedResources, idx, idx+1)
		return nil
	})
}

func (s *LibraryService) Resources(studentID string) ([]model.StudyResource, error) {
	var out []model.StudyResource
	err := s.state.view(func(snap *model.Snapshot) error {
		st, err := findStudent(snap, studentID)
		if err != nil {
			return err
		}
		out = append([]model.StudyResource{}, st.SavedResources...)
		return nil
	})
	return out, err
}

func (s *LibraryService) SaveLiveSession(ctx context.Context, studentID string, session model.LiveSession) (model.LiveSession, error) {
	if !session.EndTime.IsZero() && session.EndTime.Before(session.StartTime) {
		return model.LiveSession{}, fmt.Errorf("%w: session ends before it starts", util.ErrInvalidArgument)
	}

	var out model.LiveSession
	err := s.state.mutate(ctx, "save_live_session", func(snap *model.Snapshot) error {
		st, err := findStudent(snap, studentID)
		if err != nil {
			return err
		}
		sess := session.Clone()
		if sess.ID == "" {
			sess.ID = model.NewID("live")
		}
		if sess.Transcript == nil {
			sess.Transcript = []model.TranscriptItem{}
		}
		if sess.StartTime.IsZero() {
			sess.StartTime = s.state.Now()
		}
		if sess.EndTime.IsZero() {
			sess.EndTime = s.state.Now()
		}
		st.LiveSessions = append([]model.LiveSession{sess}, st.LiveSessions...)
		out = sess.Clone()
		return nil
	})
	return out, err
}

func (s *LibraryService) LiveSessions(studentID string) ([]model.LiveSession, error) {
	var out []model.LiveSession
	err := s.state.view(func(snap *model.Snapshot) error {
		st, err := findStudent(snap, studentID)
		if err != nil {
			return err
		}
		out = make([]model.LiveSession, 0, len(st.LiveSessions))
		for _, l := range st.LiveSessions {
			out = append(out, l.Clone())
		}
		return nil
	})
	return out, err
}

func (s *LibraryService) AddLog(ctx context.Context, entry model.AIDecisionLog) (model.AIDecisionLog, error) {
	if entry.StudentID == "" {
		return model.AIDecisionLog{}, fmt.Errorf("%w: studentId is required", util.ErrInvalidArgument)
	}
	err := s.state.mutate(ctx, "add_log", func(snap *model.Snapshot) error {
		addLogLocked(snap, &entry, s.state.Now())
		return nil
	})
	return entry, err
}

func addLogLocked(snap *model.Snapshot, entry *model.AIDecisionLog, now time.Time) {
	entry.ID = model.NewID("log")
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now
	}
	snap.Logs = append([]model.AIDecisionLog{*entry}, snap.Logs...)
}

// Logs 按时间倒序
func (s *LibraryService) Logs() ([]model.AIDecisionLog, error) {
	var out []model.AIDecisionLog
	err := s.state.view(func(snap *model.Snapshot) error {
		out = append([]model.AIDecisionLog{}, snap.Logs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b model.AIDecisionLog) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out, nil
}
