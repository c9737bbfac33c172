package containerops

import (
	"encoding/json"
	"fmt"
)

func decodeContainerInfo(raw []byte) ([]ContainerInfo, error) {
	var entries []ContainerInfo
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("containerops: parse inspect output: %w", err)
	}
	return entries, nil
}
