package service

import (
	"context"
	"errors"
	"fmt"
	"h2ala_backend/internal/model"
	"h2ala_backend/internal/repository"
	"h2ala_backend/internal/util"
	"h2ala_backend/pkg/logger"
	"h2ala_backend/pkg/monitoring"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ChangePublisher 把本实例提交的变更广播给其他实例
type ChangePublisher interface {
	PublishChange(ctx context.Context, op string) error
}

type Option func(*LearnerState)

func WithClock(now func() time.Time) Option {
	return func(s *LearnerState) { s.now = now }
}

func WithSeed(seed func(now time.Time) *model.Snapshot) Option {
	return func(s *LearnerState) { s.seed = seed }
}

func WithBcryptCost(cost int) Option {
	return func(s *LearnerState) { s.bcryptCost = cost }
}

// LearnerState 进程内唯一的学习状态。启动时 Init 加载快照，关闭时 Close 落盘。
// 所有写操作串行执行：加锁 -> 修改 -> 写快照 -> 解锁 -> 通知
type LearnerState struct {
	repo       *repository.SnapshotRepository
	bus        *ChangeBus
	now        func() time.Time
	seed       func(now time.Time) *model.Snapshot
	bcryptCost int

	mu        sync.RWMutex
	snap      *model.Snapshot
	ready     bool
	closed    bool
	dirty     bool
	publisher ChangePublisher
}

func NewLearnerState(repo *repository.SnapshotRepository, bus *ChangeBus, opts ...Option) *LearnerState {
	s := &LearnerState{
		repo:       repo,
		bus:        bus,
		now:        time.Now,
		seed:       model.SeedSnapshot,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bus == nil {
		s.bus = NewChangeBus()
	}
	return s
}

func (s *LearnerState) Bus() *ChangeBus { return s.bus }

func (s *LearnerState) Now() time.Time { return s.now().UTC() }

func (s *LearnerState) SetPublisher(p ChangePublisher) {
	s.mu.Lock()
	s.publisher = p
	s.mu.Unlock()
}

// Init 从槽位加载快照。槽位为空或内容损坏时使用种子数据；读取失败或版本过新时返回错误
func (s *LearnerState) Init(ctx context.Context) error {
	snap, found, err := s.load(ctx)
	if err != nil {
		return err
	}

	hashed, err := s.hashPlaintextPasswords(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.snap = snap
	s.ready = true
	s.closed = false
	s.mu.Unlock()

	logger.Log.Info("Learner state loaded",
		zap.Bool("fromSlot", found),
		zap.Int("students", len(snap.Students)),
		zap.Int("teachers", len(snap.Teachers)),
		zap.Int("hashedCredentials", hashed),
	)

	// 种子口令第一次写入前就必须是哈希
	if !found || hashed > 0 {
		if err := s.repo.Save(ctx, snap); err != nil {
			return fmt.Errorf("persist initial snapshot: %w", err)
		}
	}
	return nil
}

func (s *LearnerState) load(ctx context.Context) (*model.Snapshot, bool, error) {
	seed := s.seed(s.Now())
	snap, found, err := s.repo.Load(ctx, seed)
	switch {
	case err == nil:
		return snap, found, nil
	case errors.Is(err, repository.ErrCorruptSnapshot):
		logger.Log.Error("Stored snapshot is corrupt, falling back to seed data", zap.Error(err))
		seed.Normalize()
		return seed, false, nil
	default:
		return nil, false, err
	}
}

// Reload 用槽位中的最新内容替换内存状态，用于其他实例写入后的同步
func (s *LearnerState) Reload(ctx context.Context) error {
	snap, _, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return util.ErrStateClosed
	}
	s.snap = snap
	s.dirty = false
	s.mu.Unlock()

	s.bus.Notify()
	return nil
}

func (s *LearnerState) hashPlaintextPasswords(snap *model.Snapshot) (int, error) {
	n := 0
	hash := func(p *string) error {
		if *p == "" || isBcryptHash(*p) {
			return nil
		}
		h, err := bcrypt.GenerateFromPassword([]byte(*p), s.bcryptCost)
		if err != nil {
			return err
		}
		*p = string(h)
		n++
		return nil
	}
	for i := range snap.Students {
		if err := hash(&snap.Students[i].Password); err != nil {
			return n, err
		}
	}
	for i := range snap.Teachers {
		if err := hash(&snap.Teachers[i].Password); err != nil {
			return n, err
		}
	}
	return n, nil
}

func isBcryptHash(p string) bool {
	return len(p) == 60 && (strings.HasPrefix(p, "$2a$") || strings.HasPrefix(p, "$2b$") || strings.HasPrefix(p, "$2y$"))
}

func (s *LearnerState) hashPassword(p string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(p), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// mutate 在写锁内执行 fn。fn 必须先校验再修改：返回错误时快照保持不变
func (s *LearnerState) mutate(ctx context.Context, op string, fn func(snap *model.Snapshot) error) error {
	s.mu.Lock()
	if !s.ready || s.closed {
		s.mu.Unlock()
		return util.ErrStateClosed
	}

	if err := fn(s.snap); err != nil {
		s.mu.Unlock()
		monitoring.StateMutations.WithLabelValues(op, "rejected").Inc()
		return err
	}

	s.persistLocked(ctx, op)
	publisher := s.publisher
	s.mu.Unlock()

	monitoring.StateMutations.WithLabelValues(op, "ok").Inc()
	s.bus.Notify()

	if publisher != nil {
		if err := publisher.PublishChange(context.WithoutCancel(ctx), op); err != nil {
			logger.Log.Warn("Failed to publish state change", zap.String("op", op), zap.Error(err))
		}
	}
	return nil
}

// persistLocked 写穿快照。写失败只记录日志并标记 dirty，由下一次写入或 Flush 重试
func (s *LearnerState) persistLocked(ctx context.Context, op string) {
	start := time.Now()
	err := s.repo.Save(context.WithoutCancel(ctx), s.snap)
	monitoring.SnapshotSaveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.dirty = true
		monitoring.SnapshotSaveFailures.Inc()
		logger.Log.Error("Failed to persist learner state", zap.String("op", op), zap.Error(err))
		return
	}
	s.dirty = false
}

// view 在读锁内执行 fn，fn 不得把内部引用带出
func (s *LearnerState) view(fn func(snap *model.Snapshot) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return util.ErrStateClosed
	}
	return fn(s.snap)
}

// Snapshot 返回当前完整状态的深拷贝
func (s *LearnerState) Snapshot() (*model.Snapshot, error) {
	var out *model.Snapshot
	err := s.view(func(snap *model.Snapshot) error {
		out = snap.Clone()
		return nil
	})
	return out, err
}

// Flush 把当前状态完整写入槽位
func (s *LearnerState) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return util.ErrStateClosed
	}
	if err := s.repo.Save(ctx, s.snap); err != nil {
		s.dirty = true
		return err
	}
	s.dirty = false
	return nil
}

// Close 落盘后拒绝后续写入，重复调用无副作用
func (s *LearnerState) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready || s.closed {
		return nil
	}
	s.closed = true
	if err := s.repo.Save(ctx, s.snap); err != nil {
		logger.Log.Error("Failed to flush learner state on close", zap.Error(err))
		return err
	}
	s.dirty = false
	logger.Log.Info("Learner state flushed")
	return nil
}

func findStudent(snap *model.Snapshot, id string) (*model.StudentProfile, error) {
	st := snap.Student(id)
	if st == nil {
		return nil, fmt.Errorf("%w: %s", util.ErrStudentNotFound, id)
	}
	return st, nil
}

func findTeacher(snap *model.Snapshot, id string) (*model.TeacherProfile, error) {
	t := snap.Teacher(id)
	if t == nil {
		return nil, fmt.Errorf("%w: %s", util.ErrTeacherNotFound, id)
	}
	return t, nil
}
