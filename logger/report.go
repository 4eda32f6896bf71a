package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type channelStat struct {
	messages int64
	bytes    int64
}

var (
	errorsMarket    int64
	errorsUser      int64
	warnsMarket     int64
	warnsUser       int64
	framesMarket    int64
	framesUser      int64
	eventsPublished int64
	recorderWrites  int64
	channels        sync.Map // map[string]*channelStat
)

func recordWarn(component string) {
	if strings.HasPrefix(component, "market") {
		atomic.AddInt64(&warnsMarket, 1)
	} else if strings.HasPrefix(component, "user") {
		atomic.AddInt64(&warnsUser, 1)
	}
}

func recordError(component string) {
	if strings.HasPrefix(component, "market") {
		atomic.AddInt64(&errorsMarket, 1)
	} else if strings.HasPrefix(component, "user") {
		atomic.AddInt64(&errorsUser, 1)
	}
}

// IncrementFrameRead counts one inbound frame on the named stream.
func IncrementFrameRead(stream string, size int) {
	switch stream {
	case "market":
		atomic.AddInt64(&framesMarket, 1)
	case "user":
		atomic.AddInt64(&framesUser, 1)
	}
	recordChannel(stream+"_ws", size)
}

func IncrementEventPublished(kind string) {
	atomic.AddInt64(&eventsPublished, 1)
	recordChannel("events_"+kind, 0)
}

func IncrementRecorderWrite(sink string, size int64) {
	atomic.AddInt64(&recorderWrites, 1)
	recordChannel("recorder_"+sink, int(size))
}

func RecordChannelMessage(name string, size int) {
	recordChannel(name, size)
}

func recordChannel(name string, size int) {
	v, _ := channels.LoadOrStore(name, &channelStat{})
	cs := v.(*channelStat)
	atomic.AddInt64(&cs.messages, 1)
	atomic.AddInt64(&cs.bytes, int64(size))
}

// StartReport begins periodic logging of system and session statistics until
// ctx is cancelled.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func reportFields() Fields {
	channelData := map[string]map[string]int64{}
	channels.Range(func(k, v any) bool {
		cs := v.(*channelStat)
		channelData[k.(string)] = map[string]int64{
			"messages": atomic.LoadInt64(&cs.messages),
			"bytes":    atomic.LoadInt64(&cs.bytes),
		}
		return true
	})

	return Fields{
		"errors_market":    atomic.LoadInt64(&errorsMarket),
		"errors_user":      atomic.LoadInt64(&errorsUser),
		"warns_market":     atomic.LoadInt64(&warnsMarket),
		"warns_user":       atomic.LoadInt64(&warnsUser),
		"frames_market":    atomic.LoadInt64(&framesMarket),
		"frames_user":      atomic.LoadInt64(&framesUser),
		"events_published": atomic.LoadInt64(&eventsPublished),
		"recorder_writes":  atomic.LoadInt64(&recorderWrites),
		"goroutines":       runtime.NumGoroutine(),
		"channels":         channelData,
	}
}

func logReport(ctx context.Context, log *Log) {
	fields := reportFields()

	cpuPct := 0.0
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		cpuPct = pct[0]
	}
	memMB := 0.0
	if vm, err := mem.VirtualMemory(); err == nil {
		memMB = float64(vm.Used) / 1024 / 1024
	}
	var bytesSent, bytesRecv uint64
	if netStats, err := gnet.IOCounters(false); err == nil && len(netStats) > 0 {
		bytesSent = netStats[0].BytesSent
		bytesRecv = netStats[0].BytesRecv
	}
	fields["cpu_percent"] = cpuPct
	fields["memory_mb"] = int64(memMB)
	fields["net_bytes_sent"] = int64(bytesSent)
	fields["net_bytes_recv"] = int64(bytesRecv)

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	count := func(name, key string) cwtypes.MetricDatum {
		return cwtypes.MetricDatum{MetricName: aws.String(name), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields[key].(int64)))}
	}
	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(memMB)},
		{MetricName: aws.String("NetBytesSent"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesSent))},
		{MetricName: aws.String("NetBytesRecv"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesRecv))},
		count("ErrorsMarket", "errors_market"),
		count("ErrorsUser", "errors_user"),
		count("WarnsMarket", "warns_market"),
		count("WarnsUser", "warns_user"),
		count("FramesMarket", "frames_market"),
		count("FramesUser", "frames_user"),
		count("EventsPublished", "events_published"),
		count("RecorderWrites", "recorder_writes"),
	}

	publishMetrics(ctx, data)
}
