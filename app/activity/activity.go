package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/internal/config"
	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/internal/gateway"
	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/internal/notify"
	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/internal/svc"
	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/internal/sweeper"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
)

var configFile = flag.String("f", "etc/activity.yaml", "the config file")

func main() {
	flag.Parse()

	// 加载配置
	var c config.Config
	conf.MustLoad(*configFile, &c)

	// 创建服务上下文
	svcCtx := svc.NewServiceContext(c)

	// 实时网关：Hub + 事件处理器
	presence := gateway.NewRedisTracker(svcCtx.EventRedis)
	hub := gateway.NewHub(svcCtx.MessagingClient, presence)
	gw := gateway.NewGateway(hub, svcCtx.ActivityModel, svcCtx.ParticipationModel, svcCtx.JwtAuth)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)

	// 三通道扇出分发器
	dispatcher := notify.NewDispatcher(
		svcCtx.NotificationModel,
		svcCtx.ParticipationModel,
		hub,
		svcCtx.EmailSender,
		int64(c.Sweep.MaxFanoutWorkers),
	)

	// 生命周期扫描
	sw := sweeper.NewSweeper(svcCtx.ActivityModel, svcCtx.ScheduleModel, dispatcher, svcCtx.Producer)
	runner := sweeper.NewRunner(svcCtx.Redis, sw.Jobs(sweeper.JobSettings{
		TickInterval:       time.Duration(c.Sweep.TickSeconds) * time.Second,
		ResolveDailyAt:     c.Sweep.ResolveDailyAt,
		ReminderTodayAt:    c.Sweep.ReminderTodayAt,
		ReminderOneDayAt:   c.Sweep.ReminderOneDayAt,
		DeadlineReminderAt: c.Sweep.DeadlineReminderAt,
		ReminderThreeDayAt: c.Sweep.ReminderThreeDayAt,
		ScheduleReminderAt: c.Sweep.ScheduleReminderAt,
	}))
	runner.Start()

	// HTTP 服务器
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.ServeWS())

	// 健康检查
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// 在线用户数查询
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"online_users":%d}`, hub.GetOnlineUserCount())
	})

	// Prometheus 指标
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", c.Host, c.Port),
		Handler: mux,
	}

	// 启动服务器
	go func() {
		logx.Infof("活动生命周期服务启动在 %s:%d", c.Host, c.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Errorf("服务器错误: %v", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logx.Info("正在关闭服务器...")
	runner.Stop()
	cancel()

	if err := server.Shutdown(context.Background()); err != nil {
		logx.Errorf("服务器关闭错误: %v", err)
	}

	if err := svcCtx.MessagingClient.Close(); err != nil {
		logx.Errorf("消息中间件关闭错误: %v", err)
	}

	logx.Info("服务器已停止")
}
