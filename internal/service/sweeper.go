package service

import (
	"context"
	"time"

	"go-file-vault/internal/repository"
	"go-file-vault/pkg/logger"

	"go.uber.org/zap"
)

// Sweeper 周期性删除过期的分享链接及其文件。
// 在main中构造一次并显式启动，依赖通过参数传入而不是全局状态；
// 独立于请求处理运行，单次失败只记录日志，下个周期继续。
type Sweeper struct {
	fileRepo *repository.FileRepository
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// 创建一个新的清扫任务实例
func NewSweeper(fileRepo *repository.FileRepository, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		fileRepo: fileRepo,
		interval: interval,
	}
}

// Start 启动后台清扫goroutine
func (s *Sweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		logger.L.Info("Expiry sweeper started", zap.Duration("interval", s.interval))
		for {
			select {
			case <-ticker.C:
				if err := s.RunOnce(); err != nil {
					logger.L.Error("Sweep failed, will retry next tick", zap.Error(err))
				}
			case <-ctx.Done():
				logger.L.Info("Expiry sweeper stopped")
				return
			}
		}
	}()
}

// Stop 停止清扫任务并等待当前一轮结束
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

// RunOnce 执行一轮清扫：
// 1. 找出所有已过期的链接
// 2. 找出这些链接引用的文件
// 3. 同一事务中先删链接再删文件
// 4. 独立删除所有无链接引用的孤儿文件，
//    保证上一轮中断后本轮仍能收敛
func (s *Sweeper) RunOnce() error {
	now := time.Now()

	linkIDs, err := s.fileRepo.FindExpiredLinkIDs(now)
	if err != nil {
		return err
	}

	if len(linkIDs) > 0 {
		fileIDs, err := s.fileRepo.FindFileIDsForLinks(linkIDs)
		if err != nil {
			return err
		}

		if err := s.fileRepo.DeleteLinksAndFiles(linkIDs, fileIDs); err != nil {
			return err
		}

		logger.L.Info("Deleted expired shared links",
			zap.Int("links", len(linkIDs)), zap.Int("files", len(fileIDs)))
	}

	orphans, err := s.fileRepo.DeleteOrphanFiles()
	if err != nil {
		return err
	}
	if orphans > 0 {
		logger.L.Info("Deleted orphaned encrypted files", zap.Int64("count", orphans))
	}

	return nil
}
