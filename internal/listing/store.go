package listing

import (
	"log/slog"
	"sync"
	"time"
)

// visitorModel は訪問者ごとのModelと最終アクセス時刻を保持する。
type visitorModel struct {
	model      *Model
	lastAccess time.Time
}

// Store は訪問者IDごとのビューモデルをメモリ上で管理する。
// 一定時間アクセスのないエントリはバックグラウンドで破棄する。
// 破棄後に完了した取得結果は参照されなくなったModelに書き込まれ、そのまま捨てられる。
type Store struct {
	mu      sync.RWMutex
	models  map[string]*visitorModel
	idleTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewStore は新しいStoreを生成し、期限切れエントリのクリーンアップを開始する。
// idleTTLが0以下の場合は30分を使用する。
func NewStore(idleTTL time.Duration, logger *slog.Logger) *Store {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	s := &Store{
		models:  make(map[string]*visitorModel),
		idleTTL: idleTTL,
		logger:  logger,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Get は訪問者のModelを返す。存在しない場合は新規作成し、createdにtrueを返す。
func (s *Store) Get(visitorID string) (m *Model, created bool) {
	s.mu.RLock()
	vm, exists := s.models[visitorID]
	s.mu.RUnlock()

	if exists {
		s.mu.Lock()
		vm.lastAccess = s.now()
		s.mu.Unlock()
		return vm.model, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// ダブルチェック
	if vm, exists := s.models[visitorID]; exists {
		vm.lastAccess = s.now()
		return vm.model, false
	}

	vm = &visitorModel{
		model:      NewModel(),
		lastAccess: s.now(),
	}
	s.models[visitorID] = vm

	return vm.model, true
}

// Discard は訪問者のModelがmと同一である場合に限り削除する。
// 次のGetで新しいModelが作られる。
func (s *Store) Discard(visitorID string, m *Model) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if vm, exists := s.models[visitorID]; exists && vm.model == m {
		delete(s.models, visitorID)
	}
}

// Len は現在管理しているエントリ数を返す。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.models)
}

// cleanupLoop はidleTTLの半分の間隔で期限切れエントリを削除する。
func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(max(s.idleTTL/2, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictIdle()
		case <-s.stopCh:
			return
		}
	}
}

// evictIdle は最終アクセスからidleTTLを超えたエントリを削除し、削除件数を返す。
func (s *Store) evictIdle() int {
	now := s.now()

	s.mu.Lock()
	evicted := 0
	for id, vm := range s.models {
		if now.Sub(vm.lastAccess) > s.idleTTL {
			delete(s.models, id)
			evicted++
		}
	}
	s.mu.Unlock()

	if evicted > 0 && s.logger != nil {
		s.logger.Info("アイドル状態の閲覧セッションを削除しました",
			slog.Int("evicted", evicted),
			slog.Int("remaining", s.Len()),
		)
	}

	return evicted
}
