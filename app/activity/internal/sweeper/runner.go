package sweeper

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/redis"
)

// ==================== 常量定义 ====================

const (
	// 分布式锁配置
	lockKeyPrefix     = "activity:sweep:"
	lockExpireSeconds = 60 // 锁过期时间（秒）

	dailyLayout = "15:04"
)

// Job 一个具名扫描任务
// Interval > 0 时按固定间隔执行；否则按 DailyAt（每天定点，本地时区）执行。
// Run 是 now 的纯函数（加注入的依赖），可脱离真实时钟测试
type Job struct {
	Name     string
	Interval time.Duration
	DailyAt  string
	Run      func(ctx context.Context, now time.Time)
}

// ==================== Runner 扫描任务调度器 ====================

// Runner 周期扫描调度器
//
// 执行策略：
//   - 每个任务独立协程，互不阻塞
//   - 每次执行先抢 Redis 分布式锁，确保多实例部署时只有一个实例执行
//   - panic 只影响当次执行，不影响后续调度
type Runner struct {
	redis *redis.Redis
	jobs  []Job

	running  atomic.Bool   // 运行状态（原子操作，并发安全）
	stopChan chan struct{} // 停止信号
	stopOnce sync.Once     // 保证 close(stopChan) 只执行一次
	ownerID  string        // 分布式锁 owner 标识（防止误删他人锁）
}

// NewRunner 创建扫描任务调度器
// rds 为 nil 时不加分布式锁（单实例模式）
func NewRunner(rds *redis.Redis, jobs []Job) *Runner {
	return &Runner{
		redis:    rds,
		jobs:     jobs,
		stopChan: make(chan struct{}),
		ownerID:  uuid.New().String(), // 唯一标识，用于分布式锁 owner 校验
	}
}

// Start 启动全部扫描任务
func (r *Runner) Start() {
	// CAS 操作：只有从 false → true 时才启动，天然防重入
	if !r.running.CompareAndSwap(false, true) {
		logx.Info("[Sweep] 调度器已在运行中，跳过重复启动")
		return
	}

	logx.Infof("[Sweep] 启动扫描调度器: 任务数=%d, owner=%s", len(r.jobs), r.ownerID)

	for i := range r.jobs {
		job := r.jobs[i]
		if job.Interval > 0 {
			go r.runInterval(job)
		} else {
			go r.runDaily(job)
		}
	}
}

// Stop 停止调度器
func (r *Runner) Stop() {
	if !r.running.Load() {
		return
	}
	// sync.Once 保证 close(stopChan) 只执行一次，防止 double close panic
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
	r.running.Store(false)
	logx.Info("[Sweep] 调度器已停止")
}

// RunOnce 手动执行全部任务一次（供测试/运维使用，不抢锁）
func (r *Runner) RunOnce(ctx context.Context, now time.Time) {
	for _, job := range r.jobs {
		job.Run(ctx, now)
	}
}

// runInterval 固定间隔任务循环
func (r *Runner) runInterval(job Job) {
	// 启动后立即执行一次
	r.execute(job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.execute(job)
		case <-r.stopChan:
			return
		}
	}
}

// runDaily 每天定点任务循环
func (r *Runner) runDaily(job Job) {
	for {
		wait := untilNextDaily(time.Now(), job.DailyAt)
		timer := time.NewTimer(wait)

		select {
		case <-timer.C:
			r.execute(job)
		case <-r.stopChan:
			timer.Stop()
			return
		}
	}
}

// untilNextDaily 距离下一次 HH:MM（本地时区）的等待时长
func untilNextDaily(now time.Time, dailyAt string) time.Duration {
	at, err := time.Parse(dailyLayout, dailyAt)
	if err != nil {
		logx.Errorf("[Sweep] 定点时间格式错误: %q, 按 00:00 处理", dailyAt)
		at = time.Time{}
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// execute 带锁执行一次任务
func (r *Runner) execute(job Job) {
	defer func() {
		if rec := recover(); rec != nil {
			logx.Errorf("[Sweep] 任务 panic recovered: job=%s, err=%v", job.Name, rec)
		}
	}()

	ctx := context.Background()

	locked, err := r.tryLock(ctx, lockKeyPrefix+job.Name)
	if err != nil {
		logx.Errorf("[Sweep] 获取锁失败: job=%s, err=%v", job.Name, err)
		return
	}
	if !locked {
		// 其他实例正在执行，跳过
		return
	}
	defer r.unlock(ctx, lockKeyPrefix+job.Name)

	metricJobRuns.WithLabelValues(job.Name).Inc()
	job.Run(ctx, time.Now())
}

// ==================== 分布式锁 ====================

// unlockScript Lua 脚本：只有 owner 匹配时才删除锁
// 防止锁过期后误删其他实例持有的锁
const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`

// tryLock 尝试获取分布式锁（带 owner 标识）
func (r *Runner) tryLock(ctx context.Context, key string) (bool, error) {
	if r.redis == nil {
		return true, nil
	}
	// SETNX + EXPIRE 原子操作，value 存入 ownerID
	ok, err := r.redis.SetnxExCtx(ctx, key, r.ownerID, lockExpireSeconds)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// unlock 释放分布式锁（仅 owner 匹配时才删除）
func (r *Runner) unlock(ctx context.Context, key string) {
	if r.redis == nil {
		return
	}
	result, err := r.redis.EvalCtx(ctx, unlockScript, []string{key}, r.ownerID)
	if err != nil {
		logx.Errorf("[Sweep] 释放锁失败: key=%s, err=%v", key, err)
		return
	}
	// result == 0 表示锁已被其他实例持有（过期后被抢占），这是正常现象
	if fmt.Sprintf("%v", result) == "0" {
		logx.Infof("[Sweep] 锁已被其他实例持有，跳过释放: key=%s", key)
	}
}
