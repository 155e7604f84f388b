//go:build profile_rgb

package main

import "pumptest-go/services/config"

const profileName = config.NameRGB
