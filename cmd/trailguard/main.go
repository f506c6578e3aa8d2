// Command trailguard scans CloudTrail logs for suspicious activity and serves
// the resulting alerts.
package main

func main() {
	Execute()
}
