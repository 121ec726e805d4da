package worker

import (
	"bytes"
	"encoding/binary"
	"os"
)

// Silence fallback format: one second of 16 kHz mono 16-bit PCM.
const (
	silenceSampleRate = 16000
	silenceChannels   = 1
	silenceBitDepth   = 16
	silenceSeconds    = 1
)

// WriteSilenceWAV writes the fallback audio asset used when narration
// generation fails for a scene.
func WriteSilenceWAV(path string) error {
	const bytesPerSample = silenceBitDepth / 8
	dataSize := silenceSampleRate * silenceSeconds * silenceChannels * bytesPerSample

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16)) // fmt chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))  // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(silenceChannels))
	binary.Write(&buf, binary.LittleEndian, uint32(silenceSampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(silenceSampleRate*silenceChannels*bytesPerSample)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(silenceChannels*bytesPerSample))                   // block align
	binary.Write(&buf, binary.LittleEndian, uint16(silenceBitDepth))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))

	return os.WriteFile(path, buf.Bytes(), 0644)
}
