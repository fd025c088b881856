package main

// Admin API of the academia LMS: payment review and pending students.
func main() {
	startWithDig()
}
