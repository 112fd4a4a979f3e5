package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// ErrBadTestList is returned when /@tests.list does not start with the
// "---" marker.
var ErrBadTestList = errors.New("error retrieving list of tests")

// TestList is the parsed content of /@tests.list.
type TestList struct {
	ResultRoot   string   // directory where the server writes results
	SeleniumPath string   // URL part of the Selenium runner
	Selenium     []string // *.test.html suites
	Other        []string // unit and functional test classes
	MaxNameLen   int      // longest DisplayName, for aligned output
}

// ParseTestList reads the "---", result root, selenium path header and
// then one test per line.
func ParseTestList(r io.Reader) (*TestList, error) {
	sc := bufio.NewScanner(r)
	var header []string
	for len(header) < 3 && sc.Scan() {
		header = append(header, sc.Text())
	}
	if len(header) == 0 || strings.TrimSpace(header[0]) != "---" {
		return nil, ErrBadTestList
	}
	if len(header) < 3 {
		return nil, fmt.Errorf("%w: truncated header", ErrBadTestList)
	}

	l := &TestList{
		ResultRoot:   header[1],
		SeleniumPath: header[2],
	}
	for sc.Scan() {
		test := sc.Text()
		if test == "" {
			continue
		}
		if n := len(DisplayName(test)); n > l.MaxNameLen {
			l.MaxNameLen = n
		}
		if IsSelenium(test) {
			l.Selenium = append(l.Selenium, test)
		} else {
			l.Other = append(l.Other, test)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return l, nil
}

// FetchTestList downloads and parses <baseURL>/@tests.list.
func FetchTestList(ctx context.Context, client *http.Client, baseURL string) (*TestList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/@tests.list", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrBadTestList, resp.Status)
	}
	return ParseTestList(resp.Body)
}

// IsSelenium reports whether test is a Selenium suite.
func IsSelenium(test string) bool {
	return strings.Contains(test, ".test.html")
}

// DisplayName turns "models.UserTest$Inner.class" into
// "models/UserTest/Inner".
func DisplayName(test string) string {
	r := strings.NewReplacer(".class", "", ".test.html", "")
	name := r.Replace(test)
	return strings.NewReplacer(".", "/", "$", "/").Replace(name)
}

// TestURL is the page that runs test on the server.
func TestURL(baseURL, seleniumPath, test string) string {
	if strings.HasSuffix(test, ".class") {
		return baseURL + "/@tests/" + test
	}
	return baseURL + seleniumPath +
		"?baseUrl=" + baseURL +
		"&test=/@tests/" + test + ".suite" +
		"&auto=true" +
		"&resultsUrl=/@tests/" + test
}

// ResultFile is the file the server writes once test finished with status
// ("passed" or "failed").
func ResultFile(root, test, status string) string {
	return filepath.Join(root, strings.ReplaceAll(test, "/", ".")+"."+status+".html")
}
