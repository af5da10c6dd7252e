package service

import (
	"context"
	"fmt"
	"h2ala_backend/internal/model"
	"h2ala_backend/internal/util"
	"strings"
)

// 测验结算规则
const (
	QuizPassPercentage   = 60
	QuizPassReward       = 50
	QuizPartialReward    = 5
	QuizMinutesPerSubmit = 5
)

type ProgressService struct {
	state *LearnerState
}

func NewProgressService(state *LearnerState) *ProgressService {
	return &ProgressService{state: state}
}

// applyScore 调整掌握度和用时，再按顺序判定：达到完成线则完成并解锁紧随其后的锁定模块；
// 否则锁定模块得到正分时自行进入学习中。最后重算学生汇总
func applyScore(st *model.StudentProfile, idx, masteryDelta, timeDelta int) {
	m := &st.Modules[idx]
	m.Mastery = model.ClampMastery(m.Mastery + masteryDelta)
	m.TimeSpent += timeDelta

	if m.Mastery >= model.CompletionMastery {
		m.Status = model.ModuleCompleted
		if next := idx + 1; next < len(st.Modules) && st.Modules[next].Status == model.ModuleLocked {
			st.Modules[next].Status = model.ModuleInProgress
		}
	} else if m.Mastery > 0 && m.Status == model.ModuleLocked {
		m.Status = model.ModuleInProgress
	}

	recomputeAggregates(st)
}

func recomputeAggregates(st *model.StudentProfile) {
	total, completed := 0, 0
	for _, m := range st.Modules {
		total += m.Mastery
		if m.Status == model.ModuleCompleted {
			completed++
		}
	}
	if len(st.Modules) > 0 {
		// 掌握度非负，整数除法即向下取整
		st.MasteryScore = total / len(st.Modules)
	} else {
		st.MasteryScore = 0
	}
	st.TopicsCompleted = completed
}

func locateModule(snap *model.Snapshot, studentID, moduleID string) (*model.StudentProfile, int, error) {
	st, err := findStudent(snap, studentID)
	if err != nil {
		return nil, -1, err
	}
	idx := st.ModuleIndex(moduleID)
	if idx < 0 {
		return nil, -1, fmt.Errorf("%w: %s", util.ErrModuleNotFound, moduleID)
	}
	return st, idx, nil
}

// ApplyModuleScore 对某个模块结算一次得分，timeDelta 为分钟数且不能为负
func (s *ProgressService) ApplyModuleScore(ctx context.Context, studentID, moduleID string, masteryDelta, timeDelta int) (model.StudentProfile, error) {
	if timeDelta < 0 {
		return model.StudentProfile{}, fmt.Errorf("%w: timeDelta must not be negative", util.ErrInvalidArgument)
	}

	var out model.StudentProfile
	err := s.state.mutate(ctx, "apply_module_score", func(snap *model.Snapshot) error {
		st, idx, err := locateModule(snap, studentID, moduleID)
		if err != nil {
			return err
		}
		applyScore(st, idx, masteryDelta, timeDelta)
		out = st.Public()
		return nil
	})
	return out, err
}

// Modules 返回学生的模块列表（按课程顺序）
func (s *ProgressService) Modules(studentID string) ([]model.ModuleStats, error) {
	var out []model.ModuleStats
	err := s.state.view(func(snap *model.Snapshot) error {
		st, err := findStudent(snap, studentID)
		if err != nil {
			return err
		}
		out = append([]model.ModuleStats{}, st.Modules...)
		return nil
	})
	return out, err
}

func (s *ProgressService) GetModuleQuestions(moduleID string) ([]model.QuizQuestion, error) {
	out := []model.QuizQuestion{}
	err := s.state.view(func(snap *model.Snapshot) error {
		for _, q := range snap.QuestionBank {
			if q.ModuleID == moduleID {
				out = append(out, q.Clone())
			}
		}
		return nil
	})
	return out, err
}

func validateQuestion(q model.QuizQuestion) error {
	if strings.TrimSpace(q.Question) == "" || len(q.Options) < 2 {
		return fmt.Errorf("%w: question needs text and at least two options", util.ErrInvalidArgument)
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return fmt.Errorf("%w: correctAnswer %d out of range", util.ErrInvalidArgument, q.CorrectAnswer)
	}
	return nil
}

// CreateAIModule 为 AI 生成的测验新建模块，插在列表最前并直接进入学习中；
// 题目重新编号后绑定到新模块并加入全局题库
func (s *ProgressService) CreateAIModule(ctx context.Context, studentID, topic string, questions []model.QuizQuestion) (model.ModuleStats, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return model.ModuleStats{}, fmt.Errorf("%w: topic is required", util.ErrInvalidArgument)
	}
	for _, q := range questions {
		if err := validateQuestion(q); err != nil {
			return model.ModuleStats{}, err
		}
	}

	var out model.ModuleStats
	err := s.state.mutate(ctx, "create_ai_module", func(snap *model.Snapshot) error {
		st, err := findStudent(snap, studentID)
		if err != nil {
			return err
		}

		mod := model.ModuleStats{
			ID:     model.NewID("ai_mod"),
			Name:   topic,
			Status: model.ModuleInProgress,
		}
		st.Modules = append([]model.ModuleStats{mod}, st.Modules...)
		recomputeAggregates(st)

		nextID := 0
		for _, q := range snap.QuestionBank {
			if q.ID > nextID {
				nextID = q.ID
			}
		}
		for _, q := range questions {
			nextID++
			q = q.Clone()
			q.ID = nextID
			q.ModuleID = mod.ID
			if q.Topic == "" {
				q.Topic = topic
			}
			snap.QuestionBank = append(snap.QuestionBank, q)
		}
		out = mod
		return nil
	})
	return out, err
}

func (s *ProgressService) RecordQuizAttempt(ctx context.Context, studentID, moduleID string, score, maxScore int) (model.QuizAttempt, error) {
	if maxScore <= 0 || score < 0 || score > maxScore {
		return model.QuizAttempt{}, fmt.Errorf("%w: score %d/%d", util.ErrInvalidArgument, score, maxScore)
	}

	var out model.QuizAttempt
	err := s.state.mutate(ctx, "record_quiz_attempt", func(snap *model.Snapshot) error {
		st, _, err := locateModule(snap, studentID, moduleID)
		if err != nil {
			return err
		}
		out = s.prependAttempt(st, moduleID, score, maxScore)
		return nil
	})
	return out, err
}

func (s *ProgressService) prependAttempt(st *model.StudentProfile, moduleID string, score, maxScore int) model.QuizAttempt {
	a := model.QuizAttempt{
		ID:       model.NewID("att"),
		Date:     s.state.Now(),
		ModuleID: moduleID,
		Score:    score,
		MaxScore: maxScore,
	}
	st.Attempts = append([]model.QuizAttempt{a}, st.Attempts...)
	return a
}

func (s *ProgressService) Attempts(studentID string) ([]model.QuizAttempt, error) {
	var out []model.QuizAttempt
	err := s.state.view(func(snap *model.Snapshot) error {
		st, err := findStudent(snap, studentID)
		if err != nil {
			return err
		}
		out = append([]model.QuizAttempt{}, st.Attempts...)
		return nil
	})
	return out, err
}

type QuizResult struct {
	Attempt    model.QuizAttempt `json:"attempt"`
	Module     model.ModuleStats `json:"module"`
	Correct    []bool            `json:"correct"`
	Percentage int               `json:"percentage"`
	Passed     bool              `json:"passed"`
}

// SubmitQuiz 按题库批改答案（answers 与题目顺序一致，-1 表示未作答），
// 记录成绩后结算：正确率达到及格线加 50 掌握度，否则加 5，每次计 5 分钟
func (s *ProgressService) SubmitQuiz(ctx context.Context, studentID, moduleID string, answers []int) (*QuizResult, error) {
	var res *QuizResult
	err := s.state.mutate(ctx, "submit_quiz", func(snap *model.Snapshot) error {
		st, idx, err := locateModule(snap, studentID, moduleID)
		if err != nil {
			return err
		}

		var questions []model.QuizQuestion
		for _, q := range snap.QuestionBank {
			if q.ModuleID == moduleID {
				questions = append(questions, q)
			}
		}
		if len(questions) == 0 {
			return fmt.Errorf("%w: module %s has no questions", util.ErrInvalidArgument, moduleID)
		}
		if len(answers) != len(questions) {
			return fmt.Errorf("%w: expected %d answers, got %d", util.ErrInvalidArgument, len(questions), len(answers))
		}

		correct := make([]bool, len(questions))
		score := 0
		for i, q := range questions {
			if answers[i] == q.CorrectAnswer {
				correct[i] = true
				score++
			}
		}
		pct := score * 100 / len(questions)
		passed := pct >= QuizPassPercentage

		attempt := s.prependAttempt(st, moduleID, score, len(questions))
		delta := QuizPartialReward
		if passed {
			delta = QuizPassReward
		}
		applyScore(st, idx, delta, QuizMinutesPerSubmit)

		res = &QuizResult{
			Attempt:    attempt,
			Module:     st.Modules[idx],
			Correct:    correct,
			Percentage: pct,
			Passed:     passed,
		}
		return nil
	})
	return res, err
}
