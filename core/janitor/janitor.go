package janitor

import (
	"os"
	"path/filepath"
	"time"

	"auralis/logger"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule 每小时整点执行
const DefaultSchedule = "0 * * * *"

// Janitor 定时清理上传临时目录
type Janitor struct {
	dir    string
	maxAge time.Duration
	cron   *cron.Cron
	now    func() time.Time
}

// New 创建清理任务，maxAge 之内的文件视为仍在上传中
func New(dir string, maxAge time.Duration) *Janitor {
	return &Janitor{
		dir:    dir,
		maxAge: maxAge,
		cron:   cron.New(),
		now:    time.Now,
	}
}

// Start 按 schedule 注册任务并启动调度器
func (j *Janitor) Start(schedule string) error {
	if _, err := j.cron.AddFunc(schedule, func() { j.RunOnce() }); err != nil {
		return err
	}
	j.cron.Start()
	logger.Info("Janitor started",
		logger.String("schedule", schedule),
		logger.String("dir", j.dir),
		logger.Duration("maxAge", j.maxAge))
	return nil
}

// Stop 停止调度并等待正在执行的任务结束
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// RunOnce 执行一次清理，返回删除的临时文件数
func (j *Janitor) RunOnce() int {
	removed := j.cleanTempDir()
	if removed > 0 {
		logger.Info("Temp files cleaned", logger.Int("removed", removed))
	}
	return removed
}

func (j *Janitor) cleanTempDir() int {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read temp dir", logger.String("dir", j.dir), logger.ErrorField(err))
		}
		return 0
	}

	cutoff := j.now().Add(-j.maxAge)
	removed := 0
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(j.dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("Failed to remove temp file", logger.String("path", path), logger.ErrorField(err))
			continue
		}
		removed++
	}
	return removed
}
