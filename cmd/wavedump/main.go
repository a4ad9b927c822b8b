// Command wavedump reads a raw C{n}:WF? ALL response captured to disk
// (the same shape tools/generate_wave produces, or a real capture
// saved from the transport layer) and decodes it into a CSV or raw
// float32 file, for inspecting an acquisition offline.
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/liultimate/siglent-acq/internal/acquisition"
)

// ValueWriter accepts decoded samples one at a time and finalizes the
// output file on Close.
type ValueWriter interface {
	Write(v float32) error
	Close() error
}

type rawValueWriter struct {
	file *os.File
	w    *bufio.Writer
}

func newRawValueWriter(name string) (*rawValueWriter, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	return &rawValueWriter{file: f, w: bufio.NewWriter(f)}, nil
}

func (r *rawValueWriter) Write(v float32) error { return binary.Write(r.w, binary.LittleEndian, v) }
func (r *rawValueWriter) Close() error {
	if err := r.w.Flush(); err != nil {
		return err
	}
	return r.file.Close()
}

type csvValueWriter struct {
	file *os.File
	w    *csv.Writer
	i    int
}

func newCSVValueWriter(name string) (*csvValueWriter, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	w.Write([]string{"index", "voltage"})
	return &csvValueWriter{file: f, w: w}, nil
}

func (c *csvValueWriter) Write(v float32) error {
	err := c.w.Write([]string{strconv.Itoa(c.i), strconv.FormatFloat(float64(v), 'f', 6, 32)})
	c.i++
	return err
}

func (c *csvValueWriter) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return err
	}
	return c.file.Close()
}

func main() {
	vdiv := flag.Float64("vdiv", 1.0, "垂直档位 (V/div)")
	offset := flag.Float64("offset", 0.0, "垂直偏移 (V)")
	writeRaw := flag.Bool("raw", false, "写出原始float32文件而非CSV")
	flag.Parse()

	fname := flag.Arg(0)
	if fname == "" {
		fmt.Println("用法: wavedump [flags] <capture-file>")
		os.Exit(1)
	}

	data, err := os.ReadFile(fname)
	if err != nil {
		fmt.Printf("读取文件失败: %v\n", err)
		os.Exit(1)
	}
	if len(data) < acquisition.HeaderSize {
		fmt.Printf("文件过短，不是有效的波形数据包\n")
		os.Exit(1)
	}

	descLength, dataLength, err := acquisition.DecodeHeader(data[:acquisition.HeaderSize])
	if err != nil {
		fmt.Printf("解析头部失败: %v\n", err)
		os.Exit(1)
	}
	blockHeaderSize := acquisition.BlockHeaderSize(descLength)

	fmt.Printf("desc_length: %d\n", descLength)
	fmt.Printf("data_length: %d\n", dataLength)
	fmt.Printf("block_header_size: %d\n", blockHeaderSize)

	if blockHeaderSize+dataLength > len(data) {
		fmt.Printf("文件长度与声明的data_length不一致\n")
		os.Exit(1)
	}
	payload := data[blockHeaderSize : blockHeaderSize+dataLength]

	var output ValueWriter
	if *writeRaw {
		output, err = newRawValueWriter(fname + ".raw")
	} else {
		output, err = newCSVValueWriter(fname + ".csv")
	}
	if err != nil {
		fmt.Printf("无法创建输出文件: %v\n", err)
		os.Exit(1)
	}

	for _, b := range payload {
		voltage := acquisition.DecodeAnalogSample(b, *vdiv, *offset)
		if err := output.Write(voltage); err != nil {
			fmt.Printf("写出失败: %v\n", err)
			os.Exit(1)
		}
	}

	if err := output.Close(); err != nil {
		fmt.Printf("关闭输出文件失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("已解码 %d 个样本\n", len(payload))
}
