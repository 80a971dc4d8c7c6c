package node

import (
	"encoding/xml"
	"io"
)

// nodeStatus mirrors the subset of the node's management-API XML status
// response this client cares about (queue depth), following the same
// xml-struct-tag shape the teacher's PMTA client used for its richer
// status/queues/vmtas responses.
type nodeStatus struct {
	XMLName xml.Name `xml:"status"`
	Traffic struct {
		Queued struct {
			Total int `xml:"total"`
		} `xml:"queued"`
	} `xml:"traffic"`
}

type parsedStatus struct {
	TotalQueued int
}

func parseStatusXML(r io.Reader) (parsedStatus, error) {
	var xs nodeStatus
	if err := xml.NewDecoder(r).Decode(&xs); err != nil {
		return parsedStatus{}, err
	}
	return parsedStatus{TotalQueued: xs.Traffic.Queued.Total}, nil
}
