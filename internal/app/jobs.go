package app

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
	"go.uber.org/zap"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/pkg/metrics"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))
	a.registerJobs()
}

func (a *Application) registerJobs() {
	a.jobs = newJobRegistry()
	jobs := []struct {
		name string
		spec string
		fn   func()
	}{
		{"expire_orders", "@every 1m", a.SchedExpireOrdersTask},
		{"system_monitor", "@every 30s", a.SchedSystemMonitorTask},
		{"process_monitor", "@every 30s", a.SchedProcessMonitorTask},
		{"clear_expired_data", "@daily", a.SchedClearExpireData},
	}
	for _, j := range jobs {
		if err := a.jobs.add(a.sched, j.name, j.spec, j.fn); err != nil {
			zap.S().Errorf("init job error %s", err.Error())
		}
	}
}

// SchedExpireOrdersTask cancels unpaid online orders past their payment
// window and returns their reserved stock.
func (a *Application) SchedExpireOrdersTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Second)
	defer cancel()
	n, err := a.orders.ExpireStale(ctx, a.clock.Now())
	if err != nil {
		zap.L().Error("expire stale orders failed", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("expired stale orders", zap.Int("count", n))
	}
}

// SchedSystemMonitorTask system monitor
func (a *Application) SchedSystemMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	_cpuuse, err := cpu.Percent(0, false)
	if err == nil && len(_cpuuse) > 0 {
		metrics.SetGauge("system_cpuuse", int64(_cpuuse[0]*100)) // percentage * 100
	}

	_meminfo, err := mem.VirtualMemory()
	if err == nil {
		metrics.SetGauge("system_memuse", int64(_meminfo.Used/1024/1024)) //nolint:gosec // G115: memory MB value fits in int64
	}
}

// SchedProcessMonitorTask app process monitor
func (a *Application) SchedProcessMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	p, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // G115: PID is always within int32 range
	if err != nil {
		return
	}

	cpuuse, err := p.CPUPercent()
	if err == nil {
		metrics.SetGauge("storefront_cpuuse", int64(cpuuse*100)) // percentage * 100
	}

	meminfo, err := p.MemoryInfo()
	if err == nil {
		metrics.SetGauge("storefront_memuse", int64(meminfo.RSS/1024/1024)) //nolint:gosec // G115: memory MB value fits in int64
	}
}

// SchedClearExpireData drops webhook payloads and audit log rows past their
// retention period.
func (a *Application) SchedClearExpireData() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	now := a.clock.Now()

	days := a.ConfigMgr().GetInt("retention", "WebhookEventDays")
	if days <= 0 {
		days = 90
	}
	res := a.gormDB.Where("received_at < ?", now.AddDate(0, 0, -days)).Delete(&domain.WebhookEvent{})
	if res.Error != nil {
		zap.L().Error("clear webhook events failed", zap.Error(res.Error))
	}

	days = a.ConfigMgr().GetInt("retention", "AuditLogDays")
	if days <= 0 {
		days = 365
	}
	res = a.gormDB.Where("opt_time < ?", now.AddDate(0, 0, -days)).Delete(&domain.SysOprLog{})
	if res.Error != nil {
		zap.L().Error("clear operation log failed", zap.Error(res.Error))
	}
}
