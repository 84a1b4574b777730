// Package pngmeta reads the generation metadata ComfyUI embeds in the
// tEXt chunks of the PNG files it writes.
package pngmeta

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var pngSignature = []byte{137, 80, 78, 71, 13, 10, 26, 10}

// maxTextChunkLength bounds the allocation for one tEXt chunk. Workflow
// graphs run to a few megabytes at most; a length header beyond this is a
// corrupt or hostile file, not metadata.
const maxTextChunkLength = 1 << 24

// ImageMetadata is the raw per-image metadata: up to two representations
// of the graph that produced the image, both optional. Consumers compare
// *ImageMetadata pointers for identity, so one loaded instance should be
// reused for as long as the underlying bytes are current.
type ImageMetadata struct {
	// Prompt is the execution-record graph JSON ("prompt" keyword).
	Prompt json.RawMessage
	// Workflow is the layout graph JSON ("workflow" keyword).
	Workflow json.RawMessage
}

// Empty reports whether neither representation is present.
func (m *ImageMetadata) Empty() bool {
	return m == nil || (len(m.Prompt) == 0 && len(m.Workflow) == 0)
}

// GetPngMetadata returns the keyword to content mapping of every tEXt
// chunk in the stream.
func GetPngMetadata(r io.Reader) (map[string]string, error) {
	header := make([]byte, 8)
	_, err := io.ReadFull(r, header)
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(header, pngSignature) {
		return nil, errors.New("not a valid PNG file")
	}

	txtChunks := make(map[string]string)

	for {
		var length uint32
		err = binary.Read(r, binary.BigEndian, &length)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		chunkType := make([]byte, 4)
		_, err = io.ReadFull(r, chunkType)
		if err != nil {
			return nil, err
		}

		if string(chunkType) == "tEXt" {
			if length > maxTextChunkLength {
				return nil, errors.New("tEXt chunk length exceeds limit")
			}
			chunkData := make([]byte, length)
			_, err = io.ReadFull(r, chunkData)
			if err != nil {
				return nil, err
			}

			keywordEnd := bytes.IndexByte(chunkData, 0)
			if keywordEnd == -1 {
				return nil, errors.New("malformed tEXt chunk")
			}

			keyword := string(chunkData[:keywordEnd])
			txtChunks[keyword] = string(chunkData[keywordEnd+1:])
		} else {
			// Skip the chunk data if it's not tEXt
			_, err = io.CopyN(io.Discard, r, int64(length))
			if err != nil {
				return nil, err
			}
		}

		// Skip the CRC
		_, err = io.CopyN(io.Discard, r, 4)
		if err != nil {
			return nil, err
		}
	}

	return txtChunks, nil
}

// ReadImage assembles ImageMetadata from a PNG stream.
func ReadImage(r io.Reader) (*ImageMetadata, error) {
	chunks, err := GetPngMetadata(r)
	if err != nil {
		return nil, err
	}
	meta := &ImageMetadata{}
	if v, ok := chunks["prompt"]; ok {
		meta.Prompt = json.RawMessage(v)
	}
	if v, ok := chunks["workflow"]; ok {
		meta.Workflow = json.RawMessage(v)
	}
	return meta, nil
}

// ReadFile loads metadata from a PNG image or from a bare graph JSON file.
// A JSON object with a "nodes" member reads as a workflow; any other JSON
// object reads as an execution-record prompt.
func ReadFile(path string) (*ImageMetadata, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return readJSONFile(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadImage(f)
}

func readJSONFile(path string) (*ImageMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sniff struct {
		Nodes json.RawMessage `json:"nodes"`
	}
	if err := json.Unmarshal(data, &sniff); err != nil {
		return nil, err
	}
	if len(sniff.Nodes) > 0 {
		return &ImageMetadata{Workflow: data}, nil
	}
	return &ImageMetadata{Prompt: data}, nil
}
