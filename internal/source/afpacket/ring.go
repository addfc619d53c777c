package afpacket

import "fmt"

const (
	tpacketHdrLen = 52 // TPACKET3_HDRLEN, rounded up
	minBlockSize  = 128 << 10
)

// ringLayout sizes a TPACKET_V3 ring for bufferMB of memory. frameSize is a
// power of two so blocks can be both page and frame multiples.
func ringLayout(bufferMB, snapLen, pageSize int) (frameSize, blockSize, numBlocks int, err error) {
	if bufferMB <= 0 {
		return 0, 0, 0, fmt.Errorf("buffer size must be positive, got %d MB", bufferMB)
	}
	if snapLen <= 0 {
		return 0, 0, 0, fmt.Errorf("snap length must be positive, got %d", snapLen)
	}
	if pageSize <= 0 {
		return 0, 0, 0, fmt.Errorf("page size must be positive, got %d", pageSize)
	}

	frameSize = 16
	for frameSize < tpacketHdrLen+snapLen {
		frameSize <<= 1
	}

	blockSize = frameSize / gcd(pageSize, frameSize) * pageSize
	for blockSize < minBlockSize {
		blockSize <<= 1
	}

	numBlocks = (bufferMB << 20) / blockSize
	if numBlocks < 1 {
		numBlocks = 1
	}
	return frameSize, blockSize, numBlocks, nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
