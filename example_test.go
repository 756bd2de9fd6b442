// SPDX-License-Identifier: EPL-2.0

package wakefront_test

import (
	"fmt"

	"github.com/ik5/wakefront"
	"github.com/ik5/wakefront/capture"
	"github.com/ik5/wakefront/internal/audiotest"
)

// Example_convert replays half a second of a 44.1 kHz mono file through the
// conversion a 48 kHz stereo codec and a 16 kHz recognizer would apply.
func Example_convert() {
	src := audiotest.NewSineSource(44100, 1, 22050, 440)

	var sizes = map[int]int{}
	stats, err := wakefront.Convert(src, capture.DefaultConfig(), func(block []byte) error {
		sizes[len(block)]++
		return nil
	})
	if err != nil {
		fmt.Println("convert:", err)
		return
	}

	fmt.Printf("%d frames, %d bytes out\n", stats.Frames, stats.Bytes)
	fmt.Println("640-byte blocks:", sizes[640])
	// Output:
	// 25 frames, 16000 bytes out
	// 640-byte blocks: 25
}
