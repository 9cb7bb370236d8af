package main

import (
	"github.com/reelroom/core/internal/app"
	"github.com/reelroom/core/internal/config"
)

func main() {
	app.Go(config.Load())
}
