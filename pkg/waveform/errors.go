package waveform

import "fmt"

// ConfigReadError wraps a transport failure or malformed reply seen
// while refreshing DeviceConfig. Fatal — the acquisition never starts.
type ConfigReadError struct {
	Query string
	Err   error
}

func (e *ConfigReadError) Error() string {
	return fmt.Sprintf("读取设备配置失败 [%s]: %v", e.Query, e.Err)
}

func (e *ConfigReadError) Unwrap() error { return e.Err }

// TimeoutError is raised when a wait predicate exceeds the 3s bound.
type TimeoutError struct {
	Event WaitEvent
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("等待 %s 超时 (3s)", e.Event)
}

// TransportError covers a non-retryable transport failure: a send
// failure, or a read outside the retryable envelope.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("传输层错误 [%s]: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// EmptyWaveformError means a channel's wave descriptor reported a zero
// data length and the response then held only the two terminating
// linefeeds. The engine treats it as fatal. A descriptor that promises
// data which then never arrives is handled separately: it is retried
// and, once retries run out, the channel is skipped without this error.
type EmptyWaveformError struct {
	Channel ChannelID
}

func (e *EmptyWaveformError) Error() string {
	return fmt.Sprintf("通道 %s 空波形，已重试耗尽", e.Channel)
}

// MalformedHeaderError means the wave descriptor reported a zero data
// length, or the trailing linefeeds were missing or wrong-sized. Fatal.
type MalformedHeaderError struct {
	Reason string
}

func (e *MalformedHeaderError) Error() string {
	return fmt.Sprintf("波形头部格式错误: %s", e.Reason)
}

// ProtocolError covers read_complete() returning false at block end, an
// unknown wait event, or a negative remaining-bytes computation. Fatal.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("协议错误: %s", e.Reason)
}
