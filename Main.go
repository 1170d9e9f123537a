package main

import (
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
)

func main() {
	// Resolving command line parameters
	configFilePath := flag.String("c", "miner_conf.json", "Path of config file")
	logDir := flag.String("l", "", "Log directory")
	flag.Parse()

	if *logDir == "" || *logDir == "stderr" {
		flag.Lookup("logtostderr").Value.Set("true")
	} else {
		flag.Lookup("log_dir").Value.Set(*logDir)
	}

	// Read configuration file
	config := NewConfig()
	err := config.LoadFromFile(*configFilePath)
	if err != nil {
		glog.Fatal("load config failed: ", err)
		return
	}
	if err = config.Init(); err != nil {
		glog.Fatal("invalid config: ", err)
		return
	}

	// Print loaded profile (for debugging)
	if glog.V(3) {
		configBytes, _ := json.Marshal(config)
		glog.Info("config: ", string(configBytes))
	}

	var client PoolClient
	if config.Getwork {
		client = NewGetworkClient(config.FarmRecheckPeriodMs, config.Coinbase)
	} else {
		client = NewStratumClient(config.WorkTimeout, config.ResponseTimeout, config.Proxy)
	}
	client.SetEndpoint(config.Endpoint())

	client.OnConnected(func() {
		glog.Info("connected to ", config.Pool.Host, ":", config.Pool.Port)
	})
	client.OnDisconnected(func() {
		glog.Warning("disconnected from ", config.Pool.Host, ":", config.Pool.Port)
	})
	client.OnWorkReceived(func(work *Work) {
		glog.Info("new job ", work.JobName)
	})
	client.OnSolutionAccepted(func(stale bool) {
		glog.Info("solution accepted")
	})
	client.OnSolutionRejected(func(stale bool) {
		glog.Warning("solution rejected")
	})

	client.Connect()

	// Exit signal
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	glog.Info("exiting...")
	client.Disconnect()
}
