package main

import (
	"context"
	"flag"
	"log"
	"os"
	"reflect"
	"strings"

	fx "github.com/robotalks/robotis.go/pkg/framework"
	"github.com/robotalks/robotis.go/pkg/l0/robotis"
	"github.com/robotalks/robotis.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/robotis.go/pkg/l1/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/robotis/"
	topic   = "#"
)

func init() {
	if val := os.Getenv("ROBO_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&topic, "topic", topic, "Topic filter under the prefix, e.g. servo/+/msg.")
}

func printStatus(topic string, ev *msgs.ServoStatusEvent) {
	for _, st := range ev.Servos {
		if st.Error != "" {
			log.Printf("%s: servo %d %s: %s", topic, st.ID, st.State, st.Error)
			continue
		}
		log.Printf("%s: servo %d %s enc=%d angle=%.1f° %.1fV %d°C load=%.0f moving=%v",
			topic, st.ID, st.State, st.Encoder, robotis.Degrees(float64(st.Angle)),
			st.Voltage, st.Temperature, st.Load, st.Moving)
	}
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	q.Sub(topic, func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/"+mqtt.TopicMeta) {
			if info, ok := mqtt.ParseMeta(topic, payload); ok {
				log.Printf("%s: online %s %v", topic, info.Meta.Description, info.Meta.Labels)
			} else {
				log.Printf("%s: offline", topic)
			}
			return
		}
		mqtt.TypedHandler(func(topic string, typed *msgs.Typed, msg fx.Message, err error) {
			switch {
			case typed == nil:
				log.Printf("%s: bad message: %v", topic, err)
			case err != nil:
				log.Printf("%s: decode error: (type_id=%x) %v", topic, typed.TypeID, err)
			default:
				if ev, ok := msg.(*msgs.ServoStatusEvent); ok {
					printStatus(topic, ev)
					return
				}
				log.Printf("%s: #%d [%s] %s", topic, typed.Sequence,
					reflect.Indirect(reflect.ValueOf(msg)).Type().Name(),
					msg.(msgs.SerializableMessage).Serializable().String())
			}
		})(topic, payload)
	})
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer q.Close()
	err = fx.NewRunner().HandleSignals().Go(fx.RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})).Wait()
	if err != nil {
		log.Println(err)
	}
}
