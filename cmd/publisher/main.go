//******************************************************************************************************
//  main.go - Gbtc
//
//  Copyright © 2021, Grid Protection Alliance.  All Rights Reserved.
//
//  Licensed to the Grid Protection Alliance (GPA) under one or more contributor license agreements. See
//  the NOTICE file distributed with this work for additional information regarding copyright ownership.
//  The GPA licenses this file to you under the MIT License (MIT), the "License"; you may not use this
//  file except in compliance with the License. You may obtain a copy of the License at:
//
//      http://opensource.org/licenses/MIT
//
//  Unless agreed to in writing, the subject software distributed under the License is distributed on an
//  "AS-IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. Refer to the
//  License for the specific language governing permissions and limitations.
//
//  Code Modification History:
//  ----------------------------------------------------------------------------------------------------
//  09/13/2021 - J. Ritchie Carroll
//       Generated original version of source code.
//
//******************************************************************************************************

package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/sttp/gopublisher/sttp/config"
	"github.com/sttp/gopublisher/sttp/guid"
	"github.com/sttp/gopublisher/sttp/ticks"
	"github.com/sttp/gopublisher/sttp/transport"
)

// demoSignal is one simulated measurement source published on a fixed interval.
type demoSignal struct {
	signalID guid.Guid
	pointTag string
	base     float64
	amount   float64
}

func main() {
	port := parseCmdLineArgs()

	settings := config.NewPublisherSettings()
	settings.Port = port
	settings.SupportsTemporalSubscriptions = true

	publisher := transport.NewDataPublisherWithSettings(settings)
	defer publisher.Close()

	publisher.SetStatusMessageCallback(func(_ *transport.DataPublisher, message string) {
		fmt.Println("[status]", message)
	})

	publisher.SetErrorMessageCallback(func(_ *transport.DataPublisher, message string) {
		fmt.Fprintln(os.Stderr, "[error]", message)
	})

	publisher.SetClientConnectedCallback(func(p *transport.DataPublisher, connection *transport.SubscriberConnection) {
		p.DispatchStatusMessage(fmt.Sprintf("client connected: %s", connection.ResolveHost()))
	})

	publisher.SetClientDisconnectedCallback(func(p *transport.DataPublisher, connection *transport.SubscriberConnection) {
		p.DispatchStatusMessage(fmt.Sprintf("client disconnected: %s", connection.ResolveHost()))
	})

	signals := []demoSignal{
		{signalID: guid.New(), pointTag: "DEMO:FREQ", base: 60.0, amount: 0.01},
		{signalID: guid.New(), pointTag: "DEMO:VPHM", base: 500000.0, amount: 500.0},
		{signalID: guid.New(), pointTag: "DEMO:VPHA", base: 0.0, amount: 5.0},
	}

	for _, signal := range signals {
		publisher.DefineMetadata(transport.MeasurementMetadata{
			SignalID:  signal.signalID,
			PointTag:  signal.pointTag,
			UpdatedOn: ticks.Now(),
		})
	}

	if err := publisher.Listen(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to listen:", err)
		os.Exit(1)
	}

	go func() {
		if err := publisher.Serve(); err != nil {
			fmt.Fprintln(os.Stderr, "serve terminated:", err)
		}
	}()

	publishLoop(publisher, signals)
}

func publishLoop(publisher *transport.DataPublisher, signals []demoSignal) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		batch := make([]transport.Measurement, 0, len(signals))

		for _, signal := range signals {
			measurement := transport.NewMeasurement()
			measurement.SignalID = signal.signalID
			measurement.Value = signal.base + signal.amount*(rand.Float64()*2-1)
			measurement.Timestamp = ticks.Now()

			batch = append(batch, measurement)
		}

		publisher.PublishMeasurements(batch)
	}
}

func parseCmdLineArgs() uint16 {
	args := os.Args

	if len(args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("    publisher PORT")
		os.Exit(1)
	}

	port, err := strconv.Atoi(args[1])

	if err != nil {
		fmt.Printf("Invalid port number \"%s\": %s\n", args[1], err.Error())
		os.Exit(2)
	}

	if port < 1 || port > math.MaxUint16 {
		fmt.Printf("Port number \"%s\" is out of range: must be 1 to %d\n", args[1], math.MaxUint16)
		os.Exit(2)
	}

	return uint16(port)
}
