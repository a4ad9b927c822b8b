// Command client subscribes to the acqtool session-bus channel over
// Redis and prints each packet as it arrives — a small standalone
// smoke-test tool for watching a live acquisition without wiring up a
// real consumer.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

func main() {
	addr := flag.String("addr", "localhost:6379", "Redis地址")
	channel := flag.String("channel", "siglent_acq", "订阅频道")
	count := flag.Int("count", 10, "接收数据包数量")
	flag.Parse()

	client := redis.NewClient(&redis.Options{Addr: *addr})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, *channel)
	defer sub.Close()

	fmt.Printf("已订阅: %s (频道 %s)\n", *addr, *channel)

	for i := 0; i < *count; i++ {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			log.Fatalf("接收失败: %v", err)
		}

		var pretty map[string]interface{}
		if err := json.Unmarshal([]byte(msg.Payload), &pretty); err != nil {
			fmt.Printf("[%d] 原始: %s\n", i+1, msg.Payload)
			continue
		}
		fmt.Printf("[%d] kind=%v channel=%v\n", i+1, pretty["kind"], pretty["channel"])
	}

	fmt.Println("接收完成")
}
