// Command generate_wave builds a synthetic Siglent C{n}:WF? ALL
// response — wave descriptor header plus a signed-byte payload — and
// writes it to a file wavedump can decode. Handy for exercising the
// decoder without a real scope attached.
package main

import (
	"encoding/binary"
	"encoding/hex"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"

	"github.com/liultimate/siglent-acq/internal/acquisition"
)

const (
	preambleSize  = 15
	descLengthOff = 36
	dataLengthOff = 60
)

func main() {
	out := flag.String("out", "wave.bin", "输出文件路径")
	samples := flag.Int("samples", 1000, "样本点数")
	vdiv := flag.Float64("vdiv", 1.0, "垂直档位 (V/div)")
	offset := flag.Float64("offset", 0.0, "垂直偏移 (V)")
	waveType := flag.String("wave", "sine", "波形类型 (sine|square|random)")
	seed := flag.Int64("seed", 1, "随机数种子 (仅random模式使用)")
	flag.Parse()

	payload := generatePayload(*samples, *waveType, *seed)
	packet := generatePacket(payload)

	if err := os.WriteFile(*out, packet, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "写入文件失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("波形数据包:\n")
	fmt.Printf("  样本数:   %d\n", *samples)
	fmt.Printf("  垂直档位: %g V/div\n", *vdiv)
	fmt.Printf("  垂直偏移: %g V\n", *offset)
	fmt.Printf("  字节数:   %d\n", len(packet))
	fmt.Printf("  前32字节: %s\n", hex.EncodeToString(packet[:32]))
	parseAndDisplay(packet, *vdiv, *offset)
}

// generatePacket wraps a payload in a minimal wave descriptor header
// (no optional trailer) followed by the 2-byte LF LF terminator.
func generatePacket(payload []byte) []byte {
	buf := make([]byte, acquisition.HeaderSize)
	desc := buf[preambleSize:]
	binary.LittleEndian.PutUint32(desc[descLengthOff:], uint32(acquisition.HeaderSize-preambleSize))
	binary.LittleEndian.PutUint32(desc[dataLengthOff:], uint32(len(payload)))
	buf = append(buf, payload...)
	buf = append(buf, '\n', '\n')
	return buf
}

func generatePayload(n int, waveType string, seed int64) []byte {
	payload := make([]byte, n)
	rng := rand.New(rand.NewSource(seed))
	for i := range payload {
		var v int
		switch waveType {
		case "square":
			if (i/50)%2 == 0 {
				v = 100
			} else {
				v = -100
			}
		case "random":
			v = rng.Intn(255) - 127
		default: // sine
			v = int(100 * math.Sin(2*math.Pi*float64(i)/64.0))
		}
		payload[i] = byte(int8(v))
	}
	return payload
}

// parseAndDisplay re-derives the header fields wavedump prints and the
// decoding-law value of the first few samples, the values wavedump
// writes to its output file.
func parseAndDisplay(packet []byte, vdiv, offset float64) {
	descLength, dataLength, err := acquisition.DecodeHeader(packet[:acquisition.HeaderSize])
	if err != nil {
		fmt.Printf("  解析头部失败: %v\n", err)
		return
	}
	blockHeaderSize := acquisition.BlockHeaderSize(descLength)

	fmt.Printf("  解析结果:\n")
	fmt.Printf("    desc_length: %d\n", descLength)
	fmt.Printf("    data_length: %d\n", dataLength)
	fmt.Printf("    block_header_size: %d\n", blockHeaderSize)

	payload := packet[blockHeaderSize : blockHeaderSize+dataLength]
	limit := 5
	if len(payload) < limit {
		limit = len(payload)
	}
	for i := 0; i < limit; i++ {
		voltage := acquisition.DecodeAnalogSample(payload[i], vdiv, offset)
		fmt.Printf("    sample[%d] = %.4f V\n", i, voltage)
	}
}
