package protocol

import (
	"strconv"
	"strings"
)

// Commands understood by the control server.
const (
	CmdSetJoints  = "SET_JOINTS"
	CmdGetJoints  = "GET_JOINTS"
	CmdGetTorques = "GET_TORQUES"
	CmdQuit       = "QUIT"
)

// Ack is the response the server sends for an accepted SET_JOINTS.
const Ack = "OK"

// Precision is the number of decimal digits sent for each joint value.
const Precision = 6

// DefaultPort is the TCP port the control server listens on.
const DefaultPort = 12321

// EncodeSetJoints builds a newline-terminated SET_JOINTS command line.
func EncodeSetJoints(v JointVector) string {
	var sb strings.Builder
	sb.Grow(len(CmdSetJoints) + NumJoints*12)
	sb.WriteString(CmdSetJoints)
	for _, x := range v {
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(x, 'f', Precision, 64))
	}
	sb.WriteByte('\n')
	return sb.String()
}

// EncodeVector formats v the way the server answers GET_JOINTS and GET_TORQUES.
func EncodeVector(v JointVector) string {
	parts := make([]string, NumJoints)
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'f', Precision, 64)
	}
	return strings.Join(parts, " ") + "\n"
}

// Line returns a bare command terminated by a newline.
func Line(cmd string) string {
	return cmd + "\n"
}

// ParseVector parses a whitespace-separated response of exactly NumJoints floats.
func ParseVector(cmd, response string) (JointVector, error) {
	var v JointVector
	fields := strings.Fields(response)
	if len(fields) != NumJoints {
		return v, &Error{
			Command:  cmd,
			Response: response,
			Reason:   "expected " + strconv.Itoa(NumJoints) + " values, got " + strconv.Itoa(len(fields)),
		}
	}
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return v, &Error{Command: cmd, Response: response, Reason: "parse value " + strconv.Itoa(i), Err: err}
		}
		v[i] = x
	}
	return v, nil
}

// CheckAck verifies a response is exactly the acknowledgment token.
func CheckAck(cmd, response string) error {
	if strings.TrimSpace(response) != Ack {
		return &Error{Command: cmd, Response: response, Reason: "not acknowledged"}
	}
	return nil
}

// ParseCommand splits a request line into its command word and arguments.
// Servers use it; the client only produces lines.
func ParseCommand(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}
