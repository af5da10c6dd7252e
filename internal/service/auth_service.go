package service

import (
	"context"
	"fmt"
	"h2ala_backend/internal/config"
	"h2ala_backend/internal/model"
	"h2ala_backend/internal/util"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type AuthService struct {
	state *LearnerState
	Cfg   *config.Config
}

func NewAuthService(state *LearnerState, cfg *config.Config) *AuthService {
	return &AuthService{state: state, Cfg: cfg}
}

type LoginResult struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Role      model.UserRole `json:"role"`
	User      any            `json:"user"`
}

// RegisterStudent 新学生带两个起始模块：m1 进行中，m2 锁定
func (s *AuthService) RegisterStudent(ctx context.Context, name, email, password string) (model.StudentProfile, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || !validEmail(email) {
		return model.StudentProfile{}, fmt.Errorf("%w: name and a valid email are required", util.ErrInvalidArgument)
	}
	if len(password) < minPasswordLength {
		return model.StudentProfile{}, fmt.Errorf("%w: password must be at least %d characters", util.ErrInvalidArgument, minPasswordLength)
	}

	// 哈希较慢，放在锁外
	hashed, err := s.state.hashPassword(password)
	if err != nil {
		return model.StudentProfile{}, err
	}

	var out model.StudentProfile
	err = s.state.mutate(ctx, "register_student", func(snap *model.Snapshot) error {
		if emailTaken(snap, email, "") {
			return util.ErrEmailRegistered
		}
		st := model.StudentProfile{
			ID:                model.NewID("stu"),
			Name:              name,
			Email:             email,
			Password:          hashed,
			SentimentTrend:    []model.Sentiment{},
			Modules:           model.StarterModules(),
			PreferredLanguage: model.LanguageEnglish,
			PreferredVoice:    model.VoiceKore,
			SavedResources:    []model.StudyResource{},
			Conversations:     []model.ChatConversation{},
			LiveSessions:      []model.LiveSession{},
			Attempts:          []model.QuizAttempt{},
		}
		snap.Students = append(snap.Students, st)
		out = st.Public()
		return nil
	})
	return out, err
}

// RegisterTeacher 教师账号只能由管理员开通
func (s *AuthService) RegisterTeacher(ctx context.Context, name, email, password, subject string) (model.TeacherProfile, error) {
	return model.TeacherProfile{}, util.ErrTeacherRegistrationClosed
}

func (s *AuthService) Login(ctx context.Context, email, password string, role model.UserRole) (*LoginResult, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", util.ErrInvalidArgument, role)
	}

	var (
		id, hash, canonicalEmail string
		user                     any
	)
	err := s.state.view(func(snap *model.Snapshot) error {
		switch role {
		case model.RoleStudent:
			for _, st := range snap.Students {
				if sameEmail(st.Email, email) {
					id, hash, canonicalEmail, user = st.ID, st.Password, st.Email, st.Public()
					return nil
				}
			}
		case model.RoleTeacher:
			for _, t := range snap.Teachers {
				if sameEmail(t.Email, email) {
					id, hash, canonicalEmail, user = t.ID, t.Password, t.Email, t.Public()
					return nil
				}
			}
		}
		return util.ErrInvalidCredentials
	})
	if err != nil {
		return nil, err
	}

	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, util.ErrInvalidCredentials
	}

	expiresIn := s.Cfg.JWT.ExpireTime
	token, err := util.GenerateJWT(id, role, canonicalEmail, s.Cfg.JWT.Secret, expiresIn)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:     token,
		ExpiresAt: time.Now().Add(expiresIn).UTC(),
		Role:      role,
		User:      user,
	}, nil
}
