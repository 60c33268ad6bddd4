package storage

import "errors"

var (
	// ErrInvalidPageID is returned when an operation is given the invalid page id sentinel
	ErrInvalidPageID = errors.New("invalid page id")

	// ErrNoAvailableFrame is returned when every frame is pinned and none can be evicted
	ErrNoAvailableFrame = errors.New("no available frame: all frames are pinned")

	// ErrPageNotResident is returned when the requested page is not in the buffer pool
	ErrPageNotResident = errors.New("page not resident in buffer pool")

	// ErrPageNotPinned is returned when unpinning a page whose pin count is already zero
	ErrPageNotPinned = errors.New("page is not pinned")

	// ErrPagePinned is returned when deleting a page that is still pinned
	ErrPagePinned = errors.New("page is pinned")

	// ErrEngineClosed is returned when operating on a closed storage engine
	ErrEngineClosed = errors.New("storage engine is closed")
)
