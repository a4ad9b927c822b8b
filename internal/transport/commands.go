package transport

import "strconv"

// Typed command builders. The source formats every outgoing command
// with vararg printf-style calls; re-expressed here as explicit
// argument slots so a bad format verb can't silently swap a channel
// index for a frame count.

func AnalogTraceQuery(ch int) string    { return "C" + strconv.Itoa(ch+1) + ":TRA?" }
func DigitalMasterQuery() string        { return "DI:SW?" }
func DigitalTraceQuery(ch int) string   { return "D" + strconv.Itoa(ch) + ":TRA?" }
func TimebaseQuery() string             { return "TDIV?" }
func AttenuationQuery(ch int) string    { return "C" + strconv.Itoa(ch+1) + ":ATTN?" }
func VdivQuery(ch int) string           { return "C" + strconv.Itoa(ch+1) + ":VDIV?" }
func VertOffsetQuery(ch int) string     { return "C" + strconv.Itoa(ch+1) + ":OFST?" }
func CouplingQuery(ch int) string       { return "C" + strconv.Itoa(ch+1) + ":CPL?" }
func TriggerSourceQuery() string        { return "TRSE?" }
func TriggerSlopeQuery(src string) string { return src + ":TRSL?" }
func TriggerLevelQuery(src string) string { return src + ":TRLV?" }
func MemoryDepthQuery(src string) string  { return "SANU? " + src }

func ArmCommand() string      { return "ARM" }
func InrQuery() string        { return "INR?" }
func FrameParamsQuery() string { return "FPAR?" }
func SetFrameCommand(n uint64) string { return "FRAM " + strconv.FormatUint(n, 10) }
func FrameQuery() string      { return "FRAM?" }

func TrmdSingleCommand() string { return ":TRMD SINGLE" }
func TrmdQuery() string         { return ":TRMD?" }
func HsmdOnCommand() string     { return ":HSMD ON" }
func HsmdOffCommand() string    { return ":HSMD OFF" }
func HsmdQuery() string         { return ":HSMD?" }
func SetFrameForceMax() string  { return ":FRAM 10000000" }

func AnalogFetchCommand(ch int) string        { return "C" + strconv.Itoa(ch+1) + ":WF? ALL" }
func DigitalFetchLegacyCommand(ch int) string { return "D" + strconv.Itoa(ch) + ":WF?" }
func DigitalFetchBulkCommand(ch int) string   { return "D" + strconv.Itoa(ch) + ":WF? DAT2" }
