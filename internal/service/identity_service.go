package service

import (
	"context"
	"fmt"
	"h2ala_backend/internal/model"
	"h2ala_backend/internal/util"
	"strings"
)

// IdentityService 学生与教师档案的读取和更新，返回值都不带凭据
type IdentityService struct {
	state *LearnerState
}

func NewIdentityService(state *LearnerState) *IdentityService {
	return &IdentityService{state: state}
}

func (s *IdentityService) Students() ([]model.StudentProfile, error) {
	var out []model.StudentProfile
	err := s.state.view(func(snap *model.Snapshot) error {
		out = make([]model.StudentProfile, 0, len(snap.Students))
		for _, st := range snap.Students {
			out = append(out, st.Public())
		}
		return nil
	})
	return out, err
}

func (s *IdentityService) Student(id string) (model.StudentProfile, error) {
	var out model.StudentProfile
	err := s.state.view(func(snap *model.Snapshot) error {
		st, err := findStudent(snap, id)
		if err != nil {
			return err
		}
		out = st.Public()
		return nil
	})
	return out, err
}

func (s *IdentityService) Teachers() ([]model.TeacherProfile, error) {
	var out []model.TeacherProfile
	err := s.state.view(func(snap *model.Snapshot) error {
		out = make([]model.TeacherProfile, 0, len(snap.Teachers))
		for _, t := range snap.Teachers {
			out = append(out, t.Public())
		}
		return nil
	})
	return out, err
}

func (s *IdentityService) Teacher(id string) (model.TeacherProfile, error) {
	var out model.TeacherProfile
	err := s.state.view(func(snap *model.Snapshot) error {
		t, err := findTeacher(snap, id)
		if err != nil {
			return err
		}
		out = t.Public()
		return nil
	})
	return out, err
}

func validateStudentPatch(p model.StudentPatch) error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", util.ErrInvalidArgument)
	}
	if p.Email != nil && !validEmail(*p.Email) {
		return fmt.Errorf("%w: malformed email", util.ErrInvalidArgument)
	}
	if p.PreferredLanguage != nil && !p.PreferredLanguage.Valid() {
		return fmt.Errorf("%w: unsupported language %q", util.ErrInvalidArgument, *p.PreferredLanguage)
	}
	if p.PreferredVoice != nil && !p.PreferredVoice.Valid() {
		return fmt.Errorf("%w: unsupported voice %q", util.ErrInvalidArgument, *p.PreferredVoice)
	}
	return nil
}

func (s *IdentityService) UpdateStudentProfile(ctx context.Context, id string, patch model.StudentPatch) (model.StudentProfile, error) {
	if err := validateStudentPatch(patch); err != nil {
		return model.StudentProfile{}, err
	}

	var out model.StudentProfile
	err := s.state.mutate(ctx, "update_student_profile", func(snap *model.Snapshot) error {
		st, err := findStudent(snap, id)
		if err != nil {
			return err
		}
		if patch.Email != nil && emailTaken(snap, *patch.Email, id) {
			return util.ErrEmailRegistered
		}
		patch.Apply(st)
		out = st.Public()
		return nil
	})
	return out, err
}

func (s *IdentityService) UpdateTeacherProfile(ctx context.Context, id string, patch model.TeacherPatch) (model.TeacherProfile, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return model.TeacherProfile{}, fmt.Errorf("%w: name must not be empty", util.ErrInvalidArgument)
	}
	if patch.Email != nil && !validEmail(*patch.Email) {
		return model.TeacherProfile{}, fmt.Errorf("%w: malformed email", util.ErrInvalidArgument)
	}
	if patch.YearsOfExperience != nil && *patch.YearsOfExperience < 0 {
		return model.TeacherProfile{}, fmt.Errorf("%w: yearsOfExperience must not be negative", util.ErrInvalidArgument)
	}

	var out model.TeacherProfile
	err := s.state.mutate(ctx, "update_teacher_profile", func(snap *model.Snapshot) error {
		t, err := findTeacher(snap, id)
		if err != nil {
			return err
		}
		if patch.Email != nil && emailTaken(snap, *patch.Email, id) {
			return util.ErrEmailRegistered
		}
		patch.Apply(t)
		out = t.Public()
		return nil
	})
	return out, err
}

func (s *IdentityService) SetStudentLanguage(ctx context.Context, id string, lang model.SupportedLanguage) error {
	_, err := s.UpdateStudentProfile(ctx, id, model.StudentPatch{PreferredLanguage: &lang})
	return err
}

func (s *IdentityService) SetStudentVoice(ctx context.Context, id string, voice model.AIVoice) error {
	_, err := s.UpdateStudentProfile(ctx, id, model.StudentPatch{PreferredVoice: &voice})
	return err
}

func (s *IdentityService) SetAtRisk(ctx context.Context, id string, atRisk bool) error {
	_, err := s.UpdateStudentProfile(ctx, id, model.StudentPatch{AtRisk: &atRisk})
	return err
}

// RecordSentiment 情绪趋势只追加
func (s *IdentityService) RecordSentiment(ctx context.Context, id string, sentiment model.Sentiment) error {
	if !sentiment.Valid() {
		return fmt.Errorf("%w: unknown sentiment %q", util.ErrInvalidArgument, sentiment)
	}
	return s.state.mutate(ctx, "record_sentiment", func(snap *model.Snapshot) error {
		st, err := findStudent(snap, id)
		if err != nil {
			return err
		}
		st.SentimentTrend = append(st.SentimentTrend, sentiment)
		return nil
	})
}

func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\n")
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// emailTaken 邮箱在学生和教师之间全局唯一，exceptID 为当前用户
func emailTaken(snap *model.Snapshot, email, exceptID string) bool {
	for _, st := range snap.Students {
		if st.ID != exceptID && sameEmail(st.Email, email) {
			return true
		}
	}
	for _, t := range snap.Teachers {
		if t.ID != exceptID && sameEmail(t.Email, email) {
			return true
		}
	}
	return false
}
